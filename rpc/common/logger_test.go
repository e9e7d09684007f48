package common

import (
	"testing"

	"github.com/phuslu/log"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]log.Level{
		"debug":   log.DebugLevel,
		"info":    log.InfoLevel,
		"warn":    log.WarnLevel,
		"warning": log.WarnLevel,
		"error":   log.ErrorLevel,
		"ERROR":   log.ErrorLevel,
	}
	for input, want := range cases {
		if got := ParseLogLevel(input); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestParseLogLevelPanicsOnUnknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected ParseLogLevel to panic on an unrecognized level")
		}
	}()
	ParseLogLevel("trace")
}

func TestCreateLoggerDefaultsToInfoLevel(t *testing.T) {
	logger := CreateLogger("tcp")
	if logger.Level != log.InfoLevel {
		t.Errorf("expected a freshly created logger to default to InfoLevel, got %v", logger.Level)
	}
}

func TestInitLoggersAppliesLevelToAll(t *testing.T) {
	a := CreateLogger("a")
	b := CreateLogger("b")

	InitLoggers(ServerConfig{LogLevel: "error"}, a, b)

	if a.Level != log.ErrorLevel || b.Level != log.ErrorLevel {
		t.Errorf("expected InitLoggers to set every logger's level, got a=%v b=%v", a.Level, b.Level)
	}
}
