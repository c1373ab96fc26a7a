package event

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/attention/service/messaging"
	"github.com/viant/attention/service/messaging/fs"
)

type load struct {
	Utilization float64 `json:"utilization"`
}

func TestNew(t *testing.T) {
	testCases := []struct {
		description string
		vendor      messaging.Vendor
		options     []Option
		expectErr   bool
	}{
		{description: "memory with defaults", vendor: messaging.VendorMemory},
		{description: "fs requires config", vendor: messaging.VendorFS, expectErr: true},
		{description: "fs", vendor: messaging.VendorFS, options: []Option{WithNewFsQueueConfig(func(name string) fs.Config {
			return fs.Config{BasePath: filepath.Join(t.TempDir(), name)}
		})}},
		{description: "redis requires config", vendor: messaging.VendorRedis, expectErr: true},
		{description: "unknown vendor", vendor: "kafka", expectErr: true},
	}
	for _, testCase := range testCases {
		srv, err := New(testCase.vendor, testCase.options...)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.vendor, srv.Vendor(), testCase.description)
		assert.NoError(t, srv.Close(), testCase.description)
	}
}

func TestSetListenerOf(t *testing.T) {
	for _, vendor := range []messaging.Vendor{messaging.VendorMemory, messaging.VendorFS} {
		base := t.TempDir()
		srv, err := New(vendor, WithPollInterval(5*time.Millisecond), WithNewFsQueueConfig(func(name string) fs.Config {
			return fs.Config{BasePath: filepath.Join(base, name)}
		}))
		require.NoError(t, err, vendor)

		received := make(chan *Event[load], 4)
		require.NoError(t, SetListenerOf[load](context.Background(), srv, func(e *Event[load]) { received <- e }), vendor)
		publisher, err := PublisherOf[load](srv)
		require.NoError(t, err, vendor)
		same, err := PublisherOf[load](srv)
		require.NoError(t, err, vendor)
		assert.Same(t, publisher, same, vendor)

		require.NoError(t, publisher.Publish(context.Background(), NewEvent(&Context{AgentID: "agent-1", Overload: true, EventType: TypeInsert}, load{Utilization: 0.97})), vendor)
		select {
		case e := <-received:
			assert.Equal(t, "agent-1", e.Context.AgentID, vendor)
			assert.True(t, e.Context.Overload, vendor)
			assert.Equal(t, 0.97, e.Data.Utilization, vendor)
		case <-time.After(2 * time.Second):
			t.Fatalf("%v: event not delivered", vendor)
		}
		require.NoError(t, srv.Close(), vendor)
	}
}
