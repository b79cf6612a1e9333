package logging

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

var timeZero time.Time

func TestParseZerologLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseZerologLevel(tt.input))
		})
	}
}

func TestNewZerolog(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, "info", "storage")

	log.Debug().Msg("hidden")
	log.Info().Str("handle", "abc").Msg("snapshot created")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "snapshot created")
	assert.Contains(t, out, "component=storage")
	assert.Contains(t, out, "handle=abc")
}
