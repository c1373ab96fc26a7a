package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "span_test.txt")
	require.NoError(t, Init("attention", "0.0.1", fname))

	ctx, parent := StartOperation(context.Background(), "allocateAttention", "agent-1")
	parent.WithAttributes(map[string]string{"task": "t1"}).WithFloat("utilization", 0.5)
	_, child := StartSpan(ctx, "store.insert", KindClient)
	child.WithBool("overload", false)
	EndSpan(child, nil)
	EndSpan(parent, nil)

	current, ok := SpanFromContext(ctx)
	assert.True(t, ok)
	assert.NotNil(t, current)
	_, ok = SpanFromContext(context.Background())
	assert.False(t, ok)

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(data), "store.insert")
	assert.Contains(t, string(data), "parent.span_id")
	assert.Contains(t, string(data), "attention.allocateAttention")
	assert.Contains(t, string(data), "agent-1")
}

func TestSpan_NilSafe(t *testing.T) {
	var span *Span
	assert.Nil(t, span.WithAttributes(map[string]string{"k": "v"}))
	span.SetStatus(nil)
	EndSpan(span, nil)
	ctx := WithSpan(context.Background(), span)
	assert.NotNil(t, ctx)
}
