package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID_Unique(t *testing.T) {
	ids := make(map[string]struct{}, 100)
	for range 100 {
		id := NewID()
		assert.Len(t, id, 8)
		ids[id] = struct{}{}
	}
	assert.Len(t, ids, 100)
}

func TestFromHeader(t *testing.T) {
	tests := []struct {
		name  string
		value string
		keep  bool
	}{
		{"empty", "", false},
		{"plain hex", "a1b2c3d4", true},
		{"uuid", "8f14e45f-ceea-467a-9575-7b2f8c0e7a11", true},
		{"underscore", "req_42", true},
		{"space", "req 42", false},
		{"newline injection", "abc\nlevel=ERROR", false},
		{"too long", strings.Repeat("a", 65), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromHeader(tt.value)
			if tt.keep {
				assert.Equal(t, tt.value, got)
				return
			}
			assert.NotEqual(t, tt.value, got)
			assert.Len(t, got, 8)
		})
	}
}

func TestID_RoundtripAndMissing(t *testing.T) {
	id, ok := ID(WithID(context.Background(), "abc12345"))
	assert.True(t, ok)
	assert.Equal(t, "abc12345", id)

	_, ok = ID(context.Background())
	assert.False(t, ok)

	_, ok = ID(WithID(context.Background(), ""))
	assert.False(t, ok)
}

func TestHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))).
		With("component", "gate")

	logger.InfoContext(WithID(context.Background(), "test1234"), "evaluated", "stage", "DESIRABILITY")
	out := buf.String()
	assert.Contains(t, out, "correlation_id=test1234")
	assert.Contains(t, out, "component=gate")
	assert.Contains(t, out, "stage=DESIRABILITY")

	buf.Reset()
	logger.InfoContext(context.Background(), "no correlation")
	assert.NotContains(t, buf.String(), "correlation_id")
}
