package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/five82/tickerdeck/internal/config"
	"github.com/five82/tickerdeck/internal/notify"
)

func TestSetupAppliesOverridesAndRestoresSession(t *testing.T) {
	for _, k := range []string{config.EnvAPIURL, config.EnvLogLevel, config.EnvTokenPath} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token")
	if err := os.WriteFile(tokenPath, []byte("opaque-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "config.toml")
	body := "api_url = \"http://file.example/api\"\nlog_dir = \"" + filepath.Join(dir, "logs") + "\"\ntoken_path = \"" + tokenPath + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	env, err := Setup(Options{ConfigPath: cfgPath, APIURL: "http://flag.example/api", LogLevel: "debug"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { _ = env.Close() })

	if env.Config.APIURL != "http://flag.example/api" {
		t.Errorf("APIURL = %q, flag should win", env.Config.APIURL)
	}
	if env.Config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", env.Config.LogLevel)
	}
	if got := env.Session.Token(); got != "opaque-token" {
		t.Errorf("Token = %q, want the stored token", got)
	}

	client, err := env.Client(notify.Discard)
	if err != nil {
		t.Fatalf("Client: %v", err)
	}
	if got := client.BaseURL(); got != "http://flag.example/api/" {
		t.Errorf("BaseURL = %q", got)
	}
	if env.Auth(client).Session() != env.Session {
		t.Error("Auth must act on the shared session")
	}

	env.Logger.Info().Msg("probe")
	if _, err := os.Stat(env.Config.LogPath()); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestSetupRejectsBadLogLevel(t *testing.T) {
	t.Setenv(config.EnvLogLevel, "")
	cfgPath := filepath.Join(t.TempDir(), "missing.toml")
	if _, err := Setup(Options{ConfigPath: cfgPath, LogLevel: "loud"}); err == nil {
		t.Fatal("expected an error for an unknown log level")
	}
}
