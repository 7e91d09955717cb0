package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything tickerdeck needs to reach the backend and to
// keep its local state.
type Config struct {
	APIURL          string
	Timeout         time.Duration
	PollEvery       time.Duration
	LogDir          string
	LogLevel        string
	TokenPath       string
	PageSize        int
	SearchDebounce  time.Duration
	SearchMinLength int
}

const (
	defaultConfigPath      = "~/.config/tickerdeck/config.toml"
	defaultAPIURL          = "http://127.0.0.1:8000/api"
	defaultTimeout         = 10 * time.Second
	defaultPollEvery       = 60 * time.Second
	defaultLogDir          = "~/.local/share/tickerdeck/logs"
	defaultLogLevel        = "info"
	defaultTokenPath       = "~/.config/tickerdeck/token"
	defaultPageSize        = 20
	defaultSearchDebounce  = 300 * time.Millisecond
	defaultSearchMinLength = 1
)

// Environment variables that override the config file.
const (
	EnvAPIURL    = "TICKERDECK_API_URL"
	EnvLogLevel  = "TICKERDECK_LOG_LEVEL"
	EnvTokenPath = "TICKERDECK_TOKEN_PATH"
)

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		APIURL:          defaultAPIURL,
		Timeout:         defaultTimeout,
		PollEvery:       defaultPollEvery,
		LogDir:          mustExpand(defaultLogDir),
		LogLevel:        defaultLogLevel,
		TokenPath:       mustExpand(defaultTokenPath),
		PageSize:        defaultPageSize,
		SearchDebounce:  defaultSearchDebounce,
		SearchMinLength: defaultSearchMinLength,
	}
}

// Load locates and parses the config file, falling back to defaults when
// missing, then applies environment overrides (including a .env file in the
// working directory).
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg, err := loadFile(resolved)
	if err != nil {
		return Config{}, err
	}

	// A missing .env is the normal case.
	_ = godotenv.Load()
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(resolved string) (Config, error) {
	cfg := Defaults()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL           string `toml:"api_url"`
		TimeoutSeconds   int    `toml:"timeout"`
		PollSeconds      int    `toml:"poll_seconds"`
		LogDir           string `toml:"log_dir"`
		LogLevel         string `toml:"log_level"`
		TokenPath        string `toml:"token_path"`
		PageSize         int    `toml:"page_size"`
		SearchDebounceMS int    `toml:"search_debounce_ms"`
		SearchMinLength  int    `toml:"search_min_length"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	if raw.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(raw.TimeoutSeconds) * time.Second
	}
	if raw.PollSeconds > 0 {
		cfg.PollEvery = time.Duration(raw.PollSeconds) * time.Second
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.LogDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.TokenPath); v != "" {
		cfg.TokenPath = mustExpand(v)
	}
	if raw.PageSize > 0 {
		cfg.PageSize = raw.PageSize
	}
	if raw.SearchDebounceMS > 0 {
		cfg.SearchDebounce = time.Duration(raw.SearchDebounceMS) * time.Millisecond
	}
	if raw.SearchMinLength > 0 {
		cfg.SearchMinLength = raw.SearchMinLength
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTokenPath)); v != "" {
		cfg.TokenPath = mustExpand(v)
	}
}

// LogPath returns the path to the application log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/tickerdeck.log")
	}
	return filepath.Join(c.LogDir, "tickerdeck.log")
}

// String renders the effective configuration for `tickerdeck config`-style
// debugging output. The token path is shown, the token never is.
func (c Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api_url            = %s\n", c.APIURL)
	fmt.Fprintf(&b, "timeout            = %s\n", c.Timeout)
	fmt.Fprintf(&b, "poll               = %s\n", c.PollEvery)
	fmt.Fprintf(&b, "log_file           = %s\n", c.LogPath())
	fmt.Fprintf(&b, "log_level          = %s\n", c.LogLevel)
	fmt.Fprintf(&b, "token_path         = %s\n", c.TokenPath)
	fmt.Fprintf(&b, "page_size          = %s\n", strconv.Itoa(c.PageSize))
	fmt.Fprintf(&b, "search_debounce    = %s\n", c.SearchDebounce)
	fmt.Fprintf(&b, "search_min_length  = %d\n", c.SearchMinLength)
	return b.String()
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
