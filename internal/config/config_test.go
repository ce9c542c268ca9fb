package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("APIBaseURL = %q, want %q", cfg.APIBaseURL, defaultAPIBaseURL)
	}
	if cfg.PollEvery != 30*time.Second {
		t.Fatalf("PollEvery = %v, want 30s", cfg.PollEvery)
	}
	if cfg.GCDelay != 60*time.Second {
		t.Fatalf("GCDelay = %v, want 60s", cfg.GCDelay)
	}
	if cfg.MaxIdleEntries != defaultMaxIdleEntries {
		t.Fatalf("MaxIdleEntries = %d, want %d", cfg.MaxIdleEntries, defaultMaxIdleEntries)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(writeConfig(t, `
api_base_url = "  https://home.example.com/api/  "
household_id = 7
user_id = 3
poll_seconds = 5
gc_delay = "90s"
max_idle_entries = 10
request_timeout = "2s"
log_file = "  ~/logs/toby.log  "
log_level = " DEBUG "
metrics_addr = "127.0.0.1:9464"
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBaseURL != "https://home.example.com/api" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.HouseholdID != 7 || cfg.UserID != 3 {
		t.Fatalf("ids = %d/%d, want 7/3", cfg.HouseholdID, cfg.UserID)
	}
	if cfg.PollEvery != 5*time.Second || cfg.GCDelay != 90*time.Second || cfg.RequestTimeout != 2*time.Second {
		t.Fatalf("durations = %v/%v/%v", cfg.PollEvery, cfg.GCDelay, cfg.RequestTimeout)
	}
	if cfg.MaxIdleEntries != 10 {
		t.Fatalf("MaxIdleEntries = %d, want 10", cfg.MaxIdleEntries)
	}
	if cfg.LogFile != filepath.Join(home, "logs", "toby.log") {
		t.Fatalf("LogFile = %q", cfg.LogFile)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.MetricsAddr != "127.0.0.1:9464" {
		t.Fatalf("MetricsAddr = %q", cfg.MetricsAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TOBY_HOUSEHOLD_ID", "12")
	t.Setenv("TOBY_LOG_LEVEL", "warn")
	t.Setenv("TOBY_POLL_EVERY", "45s")

	cfg, err := Load(writeConfig(t, "household_id = 7\nuser_id = 1\nlog_level = \"debug\"\n"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HouseholdID != 12 {
		t.Fatalf("HouseholdID = %d, want env value 12", cfg.HouseholdID)
	}
	if cfg.UserID != 1 {
		t.Fatalf("UserID = %d, want file value 1", cfg.UserID)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.PollEvery != 45*time.Second {
		t.Fatalf("PollEvery = %v, want 45s", cfg.PollEvery)
	}
}

func TestLoad_BadEnvFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TOBY_USER_ID", "alex")

	_, err := Load(writeConfig(t, ""))
	if err == nil || !strings.Contains(err.Error(), "parse env") {
		t.Fatalf("Load error = %v, want parse env error", err)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(writeConfig(t, `
api_base_url = "   "
log_level = ""
gc_delay = ""
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("APIBaseURL = %q, want %q", cfg.APIBaseURL, defaultAPIBaseURL)
	}
	if cfg.GCDelay != defaultGCDelay {
		t.Fatalf("GCDelay = %v, want %v", cfg.GCDelay, defaultGCDelay)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	_, err := Load(writeConfig(t, `api_base_url = [`))
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_InvalidDurationFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	for _, body := range []string{`gc_delay = "soon"`, `request_timeout = "-1s"`} {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("Load(%s) returned nil error", body)
		}
	}
}

func TestValidate_RequiresIDs(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "TOBY_HOUSEHOLD_ID") {
		t.Fatalf("Validate = %v, want household error", err)
	}
	cfg.HouseholdID = 7
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "user_id") {
		t.Fatalf("Validate = %v, want user error", err)
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
