package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)
	m.Observe("allocate", time.Now(), nil)
	m.Observe("allocate", time.Now(), errors.New("x"))
	m.Load("a1", 0.97, true)
	m.Queue("a1", map[string]int{"high": 2})
	m.Distraction(false)
	m.Notification("dropped")
	m.Subscribed(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("allocate", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("allocate", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Overloads))
	assert.Equal(t, 0.97, testutil.ToFloat64(m.Utilization.WithLabelValues("a1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueDepth.WithLabelValues("a1", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Distractions.WithLabelValues("filtered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Subscriptions))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Observe("x", time.Now(), nil)
		m.Load("a", 1, true)
		m.Queue("a", nil)
		m.Distraction(true)
		m.Notification("delivered")
		m.Subscribed(-1)
	})
}
