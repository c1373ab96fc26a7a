package feed

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/attention/model"
	"github.com/viant/attention/service/dao/criteria"
	"github.com/viant/attention/service/dao/state/memory"
	"github.com/viant/attention/service/dao/state/storetest"
	"github.com/viant/attention/service/event"
	"github.com/viant/attention/service/messaging"
)

func newTestFeed(t *testing.T, config Config) *Feed {
	config.PollInterval = 5 * time.Millisecond
	f, err := New(context.Background(), config, WithLogger(zerolog.Nop()), WithFs(afs.New()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func receive(t *testing.T, stream *Stream) *event.Event[model.State] {
	select {
	case e, ok := <-stream.Events():
		require.True(t, ok, "stream closed")
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

func TestFeed_Watch(t *testing.T) {
	testCases := []struct {
		description string
		config      func(t *testing.T) Config
	}{
		{
			description: "memory transport",
			config:      func(t *testing.T) Config { return DefaultConfig() },
		},
		{
			description: "fs transport",
			config: func(t *testing.T) Config {
				config := DefaultConfig()
				config.Vendor = messaging.VendorFS
				config.FS.BasePath = filepath.Join(t.TempDir(), "feed")
				return config
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			f := newTestFeed(t, testCase.config(t))
			ctx := context.Background()
			all, err := f.Watch(ctx, nil)
			require.NoError(t, err)
			overloads, err := f.Watch(ctx, criteria.New().Agent("agent-1").Overload(true))
			require.NoError(t, err)
			assert.Equal(t, 2, f.Watchers())

			store := Observe(memory.New(), f, time.Second, zerolog.Nop())
			normal := storetest.NewState("agent-1", "", 1, time.Unix(100, 0), 0.5)
			_, err = store.Insert(ctx, normal)
			require.NoError(t, err)
			overloaded := storetest.NewState("agent-1", "", 2, time.Unix(101, 0), 0.95)
			overloaded.CognitiveLoad.Overload = true
			_, err = store.Insert(ctx, overloaded)
			require.NoError(t, err)

			first := receive(t, all)
			assert.Equal(t, event.TypeInsert, first.Context.EventType)
			assert.EqualValues(t, 1, first.Context.Version)
			assert.Equal(t, normal.ID, first.Context.StateID)
			second := receive(t, all)
			assert.EqualValues(t, 2, second.Context.Version)

			e := receive(t, overloads)
			assert.True(t, e.Context.Overload)
			assert.EqualValues(t, 2, e.Data.Version)

			_, err = store.UpdateLatest(ctx, "agent-1", "", func(state *model.State) error {
				state.CognitiveLoad.Overload = false
				return nil
			})
			require.NoError(t, err)
			update := receive(t, all)
			assert.Equal(t, event.TypeUpdate, update.Context.EventType)
			assert.EqualValues(t, 3, update.Context.Version)
			select {
			case e := <-overloads.Events():
				t.Fatalf("unexpected event %v", e.Context)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestFeed_StreamClose(t *testing.T) {
	f := newTestFeed(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := f.Watch(ctx, criteria.New().Agent("agent-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, stream.ID())
	cancel()
	select {
	case _, ok := <-stream.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream was not closed")
	}
	stream.Close()
	assert.Equal(t, 0, f.Watchers())

	_, err = f.Watch(context.Background(), criteria.New().Agent(""))
	assert.Error(t, err)

	require.NoError(t, f.Close())
	_, err = f.Watch(context.Background(), nil)
	assert.Error(t, err)
}

func TestFeed_SlowWatcherDrops(t *testing.T) {
	config := DefaultConfig()
	config.Buffer = 1
	f := newTestFeed(t, config)
	ctx := context.Background()
	slow, err := f.Watch(ctx, nil)
	require.NoError(t, err)
	fast, err := f.Watch(ctx, nil)
	require.NoError(t, err)

	store := Observe(memory.New(), f, time.Second, zerolog.Nop())
	for i := 1; i <= 3; i++ {
		_, err = store.Insert(ctx, storetest.NewState("agent-1", "", int64(i), time.Unix(int64(100+i), 0), 0.3))
		require.NoError(t, err)
		assert.EqualValues(t, i, receive(t, fast).Context.Version)
	}
	assert.EqualValues(t, 1, receive(t, slow).Context.Version)
	select {
	case e := <-slow.Events():
		t.Fatalf("expected dropped events, got %v", e.Context.Version)
	case <-time.After(50 * time.Millisecond):
	}
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(ctx context.Context, e *event.Event[model.State]) error {
	p.calls++
	return errors.New("transport down")
}

func TestObserve_PublishFailureKeepsWrite(t *testing.T) {
	publisher := &failingPublisher{}
	inner := memory.New()
	store := Observe(inner, publisher, time.Second, zerolog.Nop())
	ctx := context.Background()
	_, err := store.Insert(ctx, storetest.NewState("agent-1", "", 1, time.Unix(100, 0), 0.3))
	require.NoError(t, err)
	latest, err := inner.FindLatest(ctx, "agent-1", "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, latest.Version)
	assert.Equal(t, 1, publisher.calls)

	assert.Same(t, inner, Observe(inner, nil, 0, zerolog.Nop()))
}
