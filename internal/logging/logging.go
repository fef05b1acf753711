// Package logging wraps github.com/charmbracelet/log with the handful
// of conventions the rest of this repo shares: one logger per Channel,
// tagged with role and instance, at a level selected once at startup.
//
// The teacher's go.mod already carries charmbracelet/log but its own
// source never imports it (direwolf predates it and uses dw_printf's
// color-coded console output instead); it is adopted here as the
// logging backbone rather than left unused.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

// TimestampFormat is the strftime pattern FormatTimestamp uses (the CSV
// exchange log), mirroring the teacher's operator-configurable
// `timestamp_format` (src/tq.go, src/xmit.go) rather than hardcoding
// Go's reference layout. Loggers from New stamp lines in RFC 3339.
var TimestampFormat = "%Y-%m-%d %H:%M:%S"

// Logger is the leveled logger type used throughout the module.
type Logger = *log.Logger

// New returns a logger tagged with role and instance, writing to w at
// the given level.
func New(w io.Writer, level log.Level, role, instance string) Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
	})
	return l.With("role", role, "instance", instance)
}

// Default returns a logger writing to stderr at info level, suitable
// for cmd/nrf24link's default wiring.
func Default(role, instance string) Logger {
	return New(os.Stderr, log.InfoLevel, role, instance)
}

// FormatTimestamp renders t using TimestampFormat, for components (the
// CSV exchange logger) that need the configured format rather than
// charmbracelet/log's own.
func FormatTimestamp(t time.Time) string {
	f, err := strftime.New(TimestampFormat)
	if err != nil {
		return t.Format(time.RFC3339)
	}
	return f.FormatString(t)
}

// ParseLevel adapts a config string ("debug", "info", "warn", "error")
// to a charmbracelet/log.Level, defaulting to info on an unrecognized
// value.
func ParseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
