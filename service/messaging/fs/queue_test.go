package fs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
)

type change struct {
	AgentID  string `json:"agentId"`
	Version  int64  `json:"version"`
	Overload bool   `json:"overload"`
}

func TestQueue(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	queue, err := NewQueue[change](fs, Config{BasePath: t.TempDir(), MaxRetries: 2, KeepCompleted: true})
	require.NoError(t, err)

	for _, dir := range []string{queue.pendingDir, queue.processingDir, queue.completedDir, queue.failedDir, queue.dlqDir} {
		exists, err := fs.Exists(ctx, dir)
		assert.NoError(t, err)
		assert.True(t, exists, dir)
	}

	testCases := []change{
		{AgentID: "agent-1", Version: 1},
		{AgentID: "agent-1", Version: 2, Overload: true},
		{AgentID: "agent-2", Version: 1},
	}
	for _, testCase := range testCases {
		payload := testCase
		require.NoError(t, queue.Publish(ctx, &payload))
		time.Sleep(time.Millisecond)
	}
	count, err := queue.Count(ctx, MessageStatePending)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	for i, testCase := range testCases {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		require.NotNil(t, message)
		assert.EqualValues(t, testCase, *message.T())
		require.NoError(t, message.Ack())
		assert.Error(t, message.Ack())
		completed, err := queue.Count(ctx, MessageStateCompleted)
		require.NoError(t, err)
		assert.Equal(t, i+1, completed)
	}

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.Nil(t, message)
}

func TestQueue_Retries(t *testing.T) {
	ctx := context.Background()
	queue, err := NewQueue[change](afs.New(), Config{BasePath: t.TempDir(), MaxRetries: 1})
	require.NoError(t, err)
	require.NoError(t, queue.Publish(ctx, &change{AgentID: "agent-1"}))

	for i := 0; i < 2; i++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		require.NotNil(t, message, i)
		require.NoError(t, message.Nack(nil))
	}
	dlq, err := queue.Count(ctx, "dlq")
	require.NoError(t, err)
	assert.Equal(t, 1, dlq)
	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.Nil(t, message)
}

func TestNewQueue(t *testing.T) {
	_, err := NewQueue[change](afs.New(), Config{})
	assert.Error(t, err)
	queue, err := NewQueue[change](nil, Config{BasePath: filepath.Join(t.TempDir(), "nested", "queue")})
	assert.NoError(t, err)
	assert.NotNil(t, queue)
}
