package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupLevel(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		want  zerolog.Level
	}{
		{"warn", false, zerolog.WarnLevel},
		{"bogus", false, zerolog.InfoLevel},
		{"", false, zerolog.InfoLevel},
		{"error", true, zerolog.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := Setup(&buf, tt.level, tt.debug)
			if logger.GetLevel() != tt.want {
				t.Errorf("level = %v, want %v", logger.GetLevel(), tt.want)
			}
		})
	}
}

func TestSetupWritesJSONToNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, "info", false)
	logger.Info().Str("server", "store1").Msg("selected")

	out := buf.String()
	if !strings.Contains(out, `"server":"store1"`) || !strings.Contains(out, `"message":"selected"`) {
		t.Errorf("unexpected log output: %s", out)
	}
}
