package monitoring

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/finsentiment/internal/models"
)

func TestMonitorModelHealth(t *testing.T) {
	t.Run("marks healthy after the first probe", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var healthy atomic.Bool
		go MonitorModelHealth(ctx, func(context.Context) error { return nil }, time.Hour, &healthy)

		require.Eventually(t, healthy.Load, time.Second, 5*time.Millisecond)
	})

	t.Run("tracks probe failures", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var failing atomic.Bool
		var calls atomic.Int32
		probe := func(context.Context) error {
			calls.Add(1)
			if failing.Load() {
				return errors.New("pipeline run failed")
			}
			return nil
		}

		var healthy atomic.Bool
		go MonitorModelHealth(ctx, probe, 10*time.Millisecond, &healthy)
		require.Eventually(t, healthy.Load, time.Second, 5*time.Millisecond)

		failing.Store(true)
		require.Eventually(t, func() bool { return !healthy.Load() }, time.Second, 5*time.Millisecond)
		assert.GreaterOrEqual(t, calls.Load(), int32(2))
	})

	t.Run("stops when the context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		var healthy atomic.Bool
		go func() {
			MonitorModelHealth(ctx, func(context.Context) error { return nil }, time.Hour, &healthy)
			close(done)
		}()
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("monitor did not stop")
		}
	})
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveInference(30*time.Millisecond, models.LabelPositive)
	m.ObserveInference(10*time.Millisecond, models.LabelPositive)
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.SetModelHealthy(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Predictions.WithLabelValues("Positive")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelHealthy))

	count, err := testutil.GatherAndCount(reg, "finsentiment_inference_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
