package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext_Default(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestWith_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil)).With("request_id", "r1")

	ctx := WithLogger(context.Background(), base)
	ctx = With(ctx, "user_id", "u1")
	FromContext(ctx).Info("hello")

	out := buf.String()
	assert.Contains(t, out, "request_id=r1")
	assert.Contains(t, out, "user_id=u1")
}

func TestWith_NoArgsKeepsContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, With(ctx))
}
