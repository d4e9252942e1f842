package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNodeLoggerCarriesNodeID(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	Node(Component(&base, "provider"), "n-1").Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"node_id":"n-1"`) || !strings.Contains(out, `"component":"provider"`) {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func TestNewWithWriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("warn", &buf)

	logger.Info().Msg("quiet")
	logger.Warn().Msg("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") || !strings.Contains(out, "loud") {
		t.Fatalf("unexpected output: %s", out)
	}
	if !strings.Contains(out, `"time":`) {
		t.Fatalf("expected timestamp field: %s", out)
	}
}
