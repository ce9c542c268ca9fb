package ui

import (
	"fmt"
	"path/filepath"
	"strings"
)

// truncate shortens value to limit runes, ending in "..." when cut.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// truncateMiddle shortens value by cutting its middle. File paths keep their
// extension so the log file stays recognizable.
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	const ellipsis = "…/"
	if limit <= len([]rune(ellipsis))+1 {
		return string(runes[:limit])
	}

	ext := []rune(filepath.Ext(value))
	if !strings.ContainsAny(value, `/\`) || len(ext) >= 10 || len(ext) >= limit/2 {
		ext = nil
	}
	base := runes[:len(runes)-len(ext)]
	keep := limit - len(ext) - len([]rune(ellipsis))
	head := keep / 2
	tail := keep - head
	return string(base[:head]) + ellipsis + string(base[len(base)-tail:]) + string(ext)
}

// titleCase turns "in_progress" into "In Progress".
func titleCase(value string) string {
	parts := strings.FieldsFunc(strings.ToLower(value), func(r rune) bool { return r == '_' || r == ' ' })
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

// padRight pads s with spaces to width runes.
func padRight(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// ternary returns a if cond is true, otherwise b.
func ternary(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

// pluralize renders n with the singular or plural noun.
func pluralize(n int, one, many string) string {
	return fmt.Sprintf("%d %s", n, ternary(n == 1, one, many))
}
