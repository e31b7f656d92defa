package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	ids := make(map[string]struct{}, 100)
	for range 100 {
		id := NewID()
		assert.Len(t, id, 8)
		ids[id] = struct{}{}
	}
	assert.Len(t, ids, 100)
}

func TestFromInbound(t *testing.T) {
	assert.Equal(t, "req-123_abc", FromInbound("req-123_abc"))

	assert.Len(t, FromInbound(""), 8)
	assert.Len(t, FromInbound("bad id with spaces"), 8)
	assert.Len(t, FromInbound("<script>"), 8)
	assert.Len(t, FromInbound(strings.Repeat("a", 65)), 8)
}

func TestIDRoundtrip(t *testing.T) {
	ctx := WithID(context.Background(), "abc12345")
	id, ok := ID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc12345", id)

	_, ok = ID(context.Background())
	assert.False(t, ok)

	_, ok = ID(WithID(context.Background(), ""))
	assert.False(t, ok)
}

func TestEnsure(t *testing.T) {
	ctx := Ensure(context.Background())
	id, ok := ID(ctx)
	assert.True(t, ok)

	again, _ := ID(Ensure(ctx))
	assert.Equal(t, id, again)
}

func TestHandler_AddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil))).With("component", "sweeper")

	logger.InfoContext(WithID(context.Background(), "test1234"), "sweep done", "revealed", 3)

	output := buf.String()
	assert.Contains(t, output, "correlation_id=test1234")
	assert.Contains(t, output, "component=sweeper")
	assert.Contains(t, output, "revealed=3")
}

func TestHandler_NoCorrelationID_WhenMissing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "no correlation")

	assert.NotContains(t, buf.String(), "correlation_id")
}
