package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type change struct {
	AgentID  string
	Version  int64
	Overload bool
}

func TestQueue_PublishConsume(t *testing.T) {
	queue := NewQueue[change](DefaultConfig())
	ctx := context.Background()

	testCases := []change{
		{AgentID: "agent-1", Version: 1},
		{AgentID: "agent-1", Version: 2, Overload: true},
		{AgentID: "agent-2", Version: 1},
	}
	for _, testCase := range testCases {
		payload := testCase
		require.NoError(t, queue.Publish(ctx, &payload))
	}
	assert.Equal(t, len(testCases), queue.Size())

	for _, testCase := range testCases {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, testCase, *message.T())
		assert.NoError(t, message.Ack())
		assert.Error(t, message.Ack())
	}
	assert.Equal(t, 0, queue.Size())
	assert.Error(t, queue.Publish(ctx, nil))
}

func TestQueue_Retries(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 2
	config.RetryDelay = 5 * time.Millisecond
	queue := NewQueue[change](config)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, queue.Publish(ctx, &change{AgentID: "agent-1"}))
	for i := 0; i <= config.MaxRetries; i++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, "agent-1", message.T().AgentID)
		require.NoError(t, message.Nack(fmt.Errorf("attempt %d", i)))
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 1, queue.DLQSize())
}

func TestQueue_Concurrency(t *testing.T) {
	queue := NewQueue[change](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	producers, perProducer := 8, 25

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				assert.NoError(t, queue.Publish(ctx, &change{AgentID: fmt.Sprintf("agent-%d", i), Version: int64(j + 1)}))
			}
		}(i)
	}
	consumed := 0
	for consumed < producers*perProducer {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		require.NoError(t, message.Ack())
		consumed++
	}
	wg.Wait()
	assert.Equal(t, 0, queue.Size())
}

func TestQueue_ContextCancellation(t *testing.T) {
	queue := NewQueue[change](DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, queue.Publish(ctx, &change{}))

	timeout, cancelTimeout := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelTimeout()
	_, err := queue.Consume(timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
