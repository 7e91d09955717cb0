package ui

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/tickerdeck/internal/api"
)

// Fields shown in the header line or dropped from the detail list.
var logHeaderFields = map[string]bool{
	zerolog.TimestampFieldName: true,
	zerolog.LevelFieldName:     true,
	zerolog.MessageFieldName:   true,
	"component":                true,
	"service":                  true,
	"version":                  true,
}

func formatLogLines(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.Split(formatLogLine(line), "\n")...)
	}
	return lines
}

// formatLogLine renders one zerolog JSON record as
//
//	2006-01-02 15:04:05 LEVEL [component] – message
//	    - key: value
//
// Lines that are not JSON objects are returned unchanged.
func formatLogLine(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return raw
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return raw
	}

	ts := textField(fields, zerolog.TimestampFieldName)
	if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
		ts = parsed.In(time.Local).Format("2006-01-02 15:04:05")
	}
	level := strings.ToUpper(textField(fields, zerolog.LevelFieldName))
	if level == "" {
		level = "INFO"
	}
	parts := make([]string, 0, 3)
	if ts != "" {
		parts = append(parts, ts)
	}
	parts = append(parts, level)
	if component := textField(fields, "component"); component != "" {
		parts = append(parts, "["+component+"]")
	}
	header := strings.Join(parts, " ")
	if message := textField(fields, zerolog.MessageFieldName); message != "" {
		header += " – " + message
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !logHeaderFields[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return header
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(header)
	for _, k := range keys {
		value := strings.TrimSpace(api.FormatValue(fields[k]))
		if value == "" {
			continue
		}
		b.WriteString("\n    - ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(value)
	}
	return b.String()
}

func textField(fields map[string]any, key string) string {
	return strings.TrimSpace(api.FormatValue(fields[key]))
}
