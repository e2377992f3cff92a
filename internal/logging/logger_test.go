// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("url", "https://cdn.example.com/a.jpg").Msg("cached")

	out := buf.String()
	if !strings.Contains(out, `"level":"info"`) {
		t.Errorf("Expected JSON level field, got %q", out)
	}
	if !strings.Contains(out, `"url":"https://cdn.example.com/a.jpg"`) {
		t.Errorf("Expected structured url field, got %q", out)
	}
	if !strings.Contains(out, `"message":"cached"`) {
		t.Errorf("Expected message field, got %q", out)
	}
}

func TestInit_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Debug().Msg("not emitted")
	Info().Msg("not emitted either")
	Warn().Msg("emitted")

	out := buf.String()
	if strings.Contains(out, "not emitted") {
		t.Errorf("Expected debug/info suppressed at warn level, got %q", out)
	}
	if !strings.Contains(out, "emitted") {
		t.Errorf("Expected warn message emitted, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	cacheLog := Component("cache")
	cacheLog.Info().Msg("store initialized")

	if !strings.Contains(buf.String(), `"component":"cache"`) {
		t.Errorf("Expected component field, got %q", buf.String())
	}
}

func TestNewTestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTestLogger(&buf)
	logger.Info().Str("k", "v").Msg("test")

	if !strings.Contains(buf.String(), `"k":"v"`) {
		t.Errorf("Expected test logger output, got %q", buf.String())
	}
}
