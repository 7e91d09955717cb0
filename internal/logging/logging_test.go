package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tickerdeck.log")

	logger, closer, err := Init(Options{Level: "debug", File: path, Version: "test"})
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	logger.Info().Str("path", "/stocks/trade_dates").Msg("request done")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	last := lines[len(lines)-1]

	var rec map[string]any
	if err := json.Unmarshal([]byte(last), &rec); err != nil {
		t.Fatalf("last line is not JSON: %q (%v)", last, err)
	}
	if rec["message"] != "request done" || rec["path"] != "/stocks/trade_dates" {
		t.Fatalf("record = %v, want message and path fields", rec)
	}
	if rec["service"] != "tickerdeck" || rec["version"] != "test" {
		t.Fatalf("record = %v, want service/version fields", rec)
	}
}

func TestInit_InvalidLevel(t *testing.T) {
	if _, _, err := Init(Options{Level: "loud"}); err == nil {
		t.Fatalf("Init returned nil error, want invalid level error")
	}
}

func TestInit_LevelFiltersRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer, err := Init(Options{Level: "warn", File: path})
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	_ = closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Fatalf("info record written at warn level: %s", data)
	}
	if !strings.Contains(string(data), "shown") {
		t.Fatalf("warn record missing: %s", data)
	}
}
