// Package logging builds the zerolog logger shared by every component.
//
// The terminal belongs to the UI, so the client normally logs to a file:
//
//	log, err := logging.New().ToPath(path).Level("debug").Build()
//	defer log.Close()
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const permission = 0o644

// Builder collects logger settings.
type Builder struct {
	writer io.Writer
	path   string
	level  string
}

// Log is a built logger and the file behind it, if any.
type Log struct {
	zerolog.Logger
	File *os.File
}

// New starts a builder that writes to nowhere until a sink is set.
func New() *Builder {
	return &Builder{}
}

// ToPath appends to the file at path, creating parent directories.
func (b *Builder) ToPath(path string) *Builder {
	b.path = path
	return b
}

// ToWriter sends output to w. A path, when set, takes precedence.
func (b *Builder) ToWriter(w io.Writer) *Builder {
	b.writer = w
	return b
}

// Level sets the minimum level by name ("debug", "info", ...). Empty means info.
func (b *Builder) Level(level string) *Builder {
	b.level = level
	return b
}

// Build opens the sink and returns the logger.
func (b *Builder) Build() (*Log, error) {
	level, err := ParseLevel(b.level)
	if err != nil {
		return nil, err
	}

	out := &Log{}
	w := b.writer
	if w == nil {
		w = io.Discard
	}
	if b.path != "" {
		if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		out.File, err = os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = zerolog.SyncWriter(out.File)
	}
	out.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return out, nil
}

// Close closes the log file, if one was opened.
func (l *Log) Close() error {
	if l == nil || l.File == nil {
		return nil
	}
	return l.File.Close()
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log level %q: %w", name, err)
	}
	return level, nil
}

// Component returns a child logger tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
