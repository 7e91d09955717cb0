// Package prefs handles tickerdeck user preferences persistence.
// Preferences are stored in ~/.config/tickerdeck/prefs.toml.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/tickerdeck/internal/api"
	"github.com/five82/tickerdeck/internal/config"
)

// Prefs holds user preferences for tickerdeck.
type Prefs struct {
	Theme         string `toml:"theme"`
	HistorySource string `toml:"history_source"`
	HistoryAdjust string `toml:"history_adjust"`
	PageSize      int    `toml:"page_size"`
}

const (
	defaultPrefsPath     = "~/.config/tickerdeck/prefs.toml"
	defaultTheme         = "Nightfox"
	defaultHistorySource = "eastmoney"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Defaults returns the preferences used when nothing is stored.
func Defaults() Prefs {
	return Prefs{Theme: defaultTheme, HistorySource: defaultHistorySource}
}

// Load reads preferences from the given path, falling back to defaults if
// the file is missing or unreadable. Unknown history settings are replaced
// by their defaults.
func Load(path string) Prefs {
	prefs := Defaults()

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs
	}

	file, err := os.Open(resolved)
	if err != nil {
		return prefs // missing or unreadable
	}
	defer func() { _ = file.Close() }()

	if err := toml.NewDecoder(file).Decode(&prefs); err != nil {
		return Defaults()
	}

	prefs.Theme = strings.TrimSpace(prefs.Theme)
	if prefs.Theme == "" {
		prefs.Theme = defaultTheme
	}
	prefs.HistorySource = strings.TrimSpace(prefs.HistorySource)
	if !slices.Contains(api.HistorySources(), prefs.HistorySource) {
		prefs.HistorySource = defaultHistorySource
	}
	if !slices.Contains(api.AdjustModes(), prefs.HistoryAdjust) {
		prefs.HistoryAdjust = ""
	}
	if prefs.PageSize < 0 {
		prefs.PageSize = 0
	}

	return prefs
}

// Save writes preferences to the given path, creating directories as needed.
// The file is replaced atomically.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp := resolved + ".tmp"
	if err := os.WriteFile(tmp, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, resolved); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	return config.ExpandPath(path)
}
