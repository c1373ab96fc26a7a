package mailbox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_SerializesPerKey(t *testing.T) {
	dispatcher := New(DefaultConfig())
	defer dispatcher.Close()

	var active, maxActive int32
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := dispatcher.Do(context.Background(), "agent-1", func(ctx context.Context) error {
				current := atomic.AddInt32(&active, 1)
				for {
					seen := atomic.LoadInt32(&maxActive)
					if current <= seen || atomic.CompareAndSwapInt32(&maxActive, seen, current) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				atomic.AddInt32(&active, -1)
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 1, maxActive)
	assert.Len(t, order, 50)
}

func TestDispatcher_KeysRunInParallel(t *testing.T) {
	dispatcher := New(DefaultConfig())
	defer dispatcher.Close()

	release := make(chan struct{})
	started := make(chan string, 2)
	var wg sync.WaitGroup
	for _, key := range []string{"a", "b"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_ = dispatcher.Do(context.Background(), key, func(ctx context.Context) error {
				started <- key
				<-release
				return nil
			})
		}(key)
	}
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("keys did not run in parallel")
		}
	}
	close(release)
	wg.Wait()
}

func TestDispatcher_Results(t *testing.T) {
	dispatcher := New(DefaultConfig())
	defer dispatcher.Close()
	boom := errors.New("boom")

	testCases := []struct {
		description string
		ctx         func() context.Context
		job         Job
		expect      error
	}{
		{description: "job error", ctx: context.Background, job: func(ctx context.Context) error { return boom }, expect: boom},
		{description: "cancelled before start", ctx: func() context.Context {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx
		}, job: func(ctx context.Context) error { return nil }, expect: context.Canceled},
	}
	for _, testCase := range testCases {
		err := dispatcher.Do(testCase.ctx(), "k", testCase.job)
		assert.True(t, errors.Is(err, testCase.expect), testCase.description)
	}

	err := dispatcher.Do(context.Background(), "k", func(ctx context.Context) error { panic("bad") })
	assert.Error(t, err)
}

func TestDispatcher_IdleWorkersExit(t *testing.T) {
	dispatcher := New(Config{Buffer: 1, IdleTimeout: 10 * time.Millisecond})
	defer dispatcher.Close()
	require.NoError(t, dispatcher.Do(context.Background(), "k", func(ctx context.Context) error { return nil }))
	assert.Eventually(t, func() bool { return dispatcher.Len() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, dispatcher.Do(context.Background(), "k", func(ctx context.Context) error { return nil }))
}

func TestDispatcher_Closed(t *testing.T) {
	dispatcher := New(DefaultConfig())
	require.NoError(t, dispatcher.Close())
	require.NoError(t, dispatcher.Close())
	err := dispatcher.Do(context.Background(), "k", func(ctx context.Context) error { return nil })
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestDispatcher_WaitBoundedByContext(t *testing.T) {
	dispatcher := New(DefaultConfig())
	defer dispatcher.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	blocked := make(chan error, 1)
	go func() {
		blocked <- dispatcher.Do(context.Background(), "k", func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	var ran int32
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	begin := time.Now()
	err := dispatcher.Do(ctx, "k", func(ctx context.Context) error {
		atomic.StoreInt32(&ran, 1)
		return nil
	})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(begin), time.Second)

	close(release)
	require.NoError(t, <-blocked)
	require.NoError(t, dispatcher.Do(context.Background(), "k", func(ctx context.Context) error { return nil }))
	assert.EqualValues(t, 0, atomic.LoadInt32(&ran))
}
