package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewHandler(inner)), &buf
}

func TestNewID(t *testing.T) {
	seen := make(map[string]struct{}, 50)
	for i := 0; i < 50; i++ {
		id := NewID()
		require.Len(t, id, 8)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 50)
}

func TestID(t *testing.T) {
	tests := []struct {
		name   string
		ctx    context.Context
		want   string
		wantOK bool
	}{
		{"set", WithID(context.Background(), "c0ffee42"), "c0ffee42", true},
		{"missing", context.Background(), "", false},
		{"empty", WithID(context.Background(), ""), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ID(tt.ctx)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestFromHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		reused bool
	}{
		{"hex id from the call front-end", "0a1b2c3d", true},
		{"empty", "", false},
		{"not hex", "poll-42!", false},
		{"odd length hex", "abc", false},
		{"too long", strings.Repeat("ab", 40), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromHeader(tt.header)
			if tt.reused {
				assert.Equal(t, tt.header, got)
				return
			}
			assert.NotEqual(t, tt.header, got)
			assert.Len(t, got, 8)
		})
	}
}

func TestHandler_TagsPollLogLines(t *testing.T) {
	logger, buf := captureLogger(t)

	ctx := WithID(context.Background(), "feed1234")
	logger.With("session_id", "s1").InfoContext(ctx, "Poll closed", "total_responses", 3)

	out := buf.String()
	assert.Contains(t, out, "correlation_id=feed1234")
	assert.Contains(t, out, "session_id=s1")
	assert.Contains(t, out, "total_responses=3")
}

func TestHandler_LeavesUntaggedLinesAlone(t *testing.T) {
	logger, buf := captureLogger(t)

	logger.InfoContext(context.Background(), "Cleanup timer started")

	assert.NotContains(t, buf.String(), "correlation_id")
}

func TestHandler_WithGroup(t *testing.T) {
	logger, buf := captureLogger(t)

	ctx := WithID(context.Background(), "beef5678")
	logger.WithGroup("poll").InfoContext(ctx, "Poll opened", "responses", 2)

	assert.Contains(t, buf.String(), "beef5678")
	assert.Contains(t, buf.String(), "poll.responses=2")
}
