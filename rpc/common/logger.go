// Package common provides the configuration, logging, and wire-protocol
// types shared by the batchkv server and its transports.
package common

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// --------------------------------------------------------------------------
// Leveled logger
// --------------------------------------------------------------------------

// consoleFormatter renders a log line as "<level initial> <time> <caller>]
// <message>", matching the compact single-line style used across the rest
// of the server's output. The logger's context fields (such as the pkg tag
// set by CreateLogger) are not printed.
func consoleFormatter(w io.Writer, a *log.FormatterArgs) (int, error) {
	return fmt.Fprintf(w, "%c %s %s] %s\n", strings.ToUpper(a.Level)[0], a.Time, a.Caller, a.Message)
}

// CreateLogger returns a leveled logger tagged with pkgName, used the way
// each package in this repo obtains its own logger rather than sharing one
// global instance.
func CreateLogger(pkgName string) *log.Logger {
	return &log.Logger{
		Level:   log.InfoLevel,
		Context: log.NewContext(nil).Str("pkg", pkgName).Value(),
		Writer: &log.ConsoleWriter{
			Writer:    os.Stdout,
			Formatter: consoleFormatter,
		},
	}
}

// ParseLogLevel converts a string level ("debug", "info", "warn", "error")
// into a phuslu/log.Level, panicking on an unrecognized value since this is
// only ever called while parsing startup configuration.
func ParseLogLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		panic(fmt.Sprintf("invalid log level: %s, must be one of debug, info, warn, error", level))
	}
}

// InitLoggers sets the level of every package logger created through
// CreateLogger to the level named in config. Called once at startup after
// flags/env/config have been resolved.
func InitLoggers(config ServerConfig, loggers ...*log.Logger) {
	level := ParseLogLevel(config.LogLevel)
	for _, l := range loggers {
		l.Level = level
	}
}
