package ctxutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithDefaultTimeout(t *testing.T) {
	ctx, cancel := WithDefaultTimeout(context.Background(), time.Second)
	defer cancel()
	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 100*time.Millisecond)

	parent, parentCancel := context.WithTimeout(context.Background(), time.Hour)
	defer parentCancel()
	ctx, cancel = WithDefaultTimeout(parent, time.Second)
	defer cancel()
	deadline, _ = ctx.Deadline()
	assert.WithinDuration(t, time.Now().Add(time.Hour), deadline, time.Second)
}

func TestDetachWithTimeout(t *testing.T) {
	parent, parentCancel := context.WithCancel(context.Background())
	parentCancel()
	ctx, cancel := DetachWithTimeout(parent, time.Second)
	defer cancel()
	assert.NoError(t, ctx.Err())
}
