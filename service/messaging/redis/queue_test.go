package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type change struct {
	AgentID  string `json:"agentId"`
	Overload bool   `json:"overload"`
}

func newTestQueue(t *testing.T) *Queue[change] {
	addr := os.Getenv("ATTENTION_REDIS_ADDR")
	if addr == "" {
		t.Skip("ATTENTION_REDIS_ADDR not set")
	}
	config := DefaultConfig()
	config.Addr = addr
	config.Stream = "attention:test:" + t.Name()
	config.Block = 200 * time.Millisecond
	config.MaxRetries = 1
	queue, err := NewQueue[change](context.Background(), config)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() {
		queue.client.Del(context.Background(), config.Stream, config.DeadLetterStream())
		_ = queue.Close()
	})
	return queue
}

func TestQueue_PublishConsume(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	empty, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)

	testCases := []change{{AgentID: "agent-1"}, {AgentID: "agent-2", Overload: true}}
	for _, testCase := range testCases {
		payload := testCase
		require.NoError(t, queue.Publish(ctx, &payload))
	}
	for _, testCase := range testCases {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		require.NotNil(t, message)
		assert.EqualValues(t, testCase, *message.T())
		assert.NoError(t, message.Ack())
	}
}

func TestQueue_DeadLetter(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()
	_, err := queue.Consume(ctx)
	require.NoError(t, err)
	require.NoError(t, queue.Publish(ctx, &change{AgentID: "agent-1"}))

	for i := 0; i < 2; i++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		require.NotNil(t, message)
		require.NoError(t, message.Nack(errors.New("boom")))
	}
	length, err := queue.client.XLen(ctx, queue.config.DeadLetterStream()).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, length)
}

func TestNewQueueWithClient(t *testing.T) {
	_, err := NewQueueWithClient[change](nil, DefaultConfig())
	assert.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	values, err := encode(&change{AgentID: "agent-1", Overload: true}, 2)
	require.NoError(t, err)
	values[fieldRetries] = "2"
	message := &Message[change]{id: "1-0"}
	require.NoError(t, decode(values, message))
	assert.Equal(t, change{AgentID: "agent-1", Overload: true}, message.payload)
	assert.Equal(t, 2, message.retries)
	assert.Error(t, decode(map[string]interface{}{}, message))
}
