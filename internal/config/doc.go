// Package config loads tickerdeck's configuration.
//
// # Resolution Order
//
// Load builds a Config in layers, later layers winning:
//
//  1. Hardcoded defaults (see Defaults)
//  2. The TOML file at the given path, or ~/.config/tickerdeck/config.toml
//  3. A .env file in the working directory, if present
//  4. TICKERDECK_API_URL, TICKERDECK_LOG_LEVEL, TICKERDECK_TOKEN_PATH
//
// Command-line flags are applied by the caller on top of the returned Config.
//
// # TOML Format
//
//	api_url = "http://127.0.0.1:8000/api"
//	timeout = 10            # seconds, shared by every request
//	poll_seconds = 60       # market summary refresh
//	log_dir = "~/.local/share/tickerdeck/logs"
//	log_level = "info"
//	token_path = "~/.config/tickerdeck/token"
//	page_size = 20
//	search_debounce_ms = 300
//	search_min_length = 1
//
// Every field is optional. Blank strings and non-positive numbers fall back
// to defaults, and paths starting with ~ are expanded.
//
// # Error Handling
//
// A missing config file is not an error. Load fails on unreadable files,
// invalid TOML and unresolvable home directories.
package config
