package logtail

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{name: "read all (0)", maxLines: 0, expected: expectedAll},
		{name: "read all (negative)", maxLines: -1, expected: expectedAll},
		{name: "read partial (5)", maxLines: 5, expected: expectedAll[5:]},
		{name: "read exactly all (10)", maxLines: 10, expected: expectedAll},
		{name: "read more than exists (20)", maxLines: 20, expected: expectedAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil || got != nil {
		t.Fatalf("Read(missing) = %v, %v; want nil, nil", got, err)
	}
}

func TestParse_ZerologLine(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).With().Timestamp().Str("component", "mutation").Logger()
	logger.Warn().Str("mutation", "completeTodo").Int("attempt", 2).Err(fmt.Errorf("server said no")).Msg("rolled back")

	entry, ok := Parse(strings.TrimSpace(buf.String()))
	if !ok {
		t.Fatalf("Parse returned ok=false for %q", buf.String())
	}
	if entry.Level != zerolog.WarnLevel {
		t.Errorf("Level = %v, want warn", entry.Level)
	}
	if entry.Component != "mutation" || entry.Message != "rolled back" || entry.Error != "server said no" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fields["mutation"] != "completeTodo" || entry.Fields["attempt"] != "2" {
		t.Errorf("Fields = %v", entry.Fields)
	}
	if entry.Time.IsZero() {
		t.Errorf("Time not parsed")
	}
}

func TestParse_PlainLine(t *testing.T) {
	entry, ok := Parse("  panic: something  ")
	if ok {
		t.Fatal("Parse returned ok=true for a plain line")
	}
	if entry.Message != "panic: something" || entry.Level != zerolog.NoLevel {
		t.Fatalf("entry = %+v", entry)
	}
	if got := Format(entry); got != "panic: something" {
		t.Fatalf("Format = %q", got)
	}
}

func TestFormat(t *testing.T) {
	entry := Entry{
		Time:      time.Date(2025, 5, 1, 9, 30, 0, 0, time.Local),
		Level:     zerolog.InfoLevel,
		Component: "poller",
		Message:   "poll",
		Fields:    map[string]string{"entries": "3", "b": "x"},
	}
	want := "09:30:00 INF [poller] poll b=x entries=3"
	if got := Format(entry); got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}

func TestTailAndFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toby.log")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	log := zerolog.New(file).With().Timestamp().Logger()
	log.Debug().Str("component", "querycache").Msg("gc sweep")
	log.Info().Str("component", "poller").Msg("poll")
	log.Warn().Str("component", "mutation").Msg("rolled back")
	_, _ = file.WriteString("\nnot json\n")
	_ = file.Close()

	entries, err := Tail(path, 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("Tail returned %d entries, want 4", len(entries))
	}

	warn := Filter(entries, zerolog.WarnLevel, "")
	if len(warn) != 2 || warn[0].Message != "rolled back" || warn[1].Message != "not json" {
		t.Fatalf("Filter(warn) = %+v", warn)
	}
	poller := Filter(entries, zerolog.DebugLevel, "poller")
	if len(poller) != 1 || poller[0].Message != "poll" {
		t.Fatalf("Filter(poller) = %+v", poller)
	}
}
