// Package config loads toby's settings.
//
// Resolution order, later wins:
//
//  1. Built-in defaults (see Default)
//  2. The TOML file, ~/.config/toby/config.toml unless a path is given
//  3. TOBY_* environment variables
//
// A missing file is not an error. Empty string fields in the file keep the
// default. Example:
//
//	api_base_url = "https://home.example.com/api"
//	household_id = 7
//	user_id = 1
//	poll_seconds = 30
//	gc_delay = "60s"
//	max_idle_entries = 256
//	request_timeout = "10s"
//	log_file = "~/.local/state/toby/toby.log"
//	log_level = "info"
//	metrics_addr = "127.0.0.1:9464"
//
// Environment overrides use the field names: TOBY_API_BASE_URL,
// TOBY_HOUSEHOLD_ID, TOBY_USER_ID, TOBY_POLL_EVERY (a Go duration),
// TOBY_GC_DELAY, TOBY_MAX_IDLE_ENTRIES, TOBY_REQUEST_TIMEOUT, TOBY_LOG_FILE,
// TOBY_LOG_LEVEL and TOBY_METRICS_ADDR.
//
// Tilde paths are expanded for the config file and log_file.
package config
