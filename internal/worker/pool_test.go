package worker

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

func TestPool_Run(t *testing.T) {
	p := New(2, 4)
	defer p.Close()

	out, err := Run(context.Background(), p, func(context.Context) (int, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, out)
}

func TestPool_RunPropagatesJobError(t *testing.T) {
	p := New(1, 0)
	defer p.Close()

	boom := errors.New("boom")
	_, err := Run(context.Background(), p, func(context.Context) (string, error) {
		return "", boom
	})

	assert.ErrorIs(t, err, boom)
}

func TestPool_ConcurrentJobsOverlap(t *testing.T) {
	p := New(4, 0)
	defer p.Close()

	var (
		running atomic.Int32
		peak    atomic.Int32
		wg      sync.WaitGroup
	)
	release := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(context.Background(), func(context.Context) {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				<-release
				running.Add(-1)
			})
		}()
	}

	require.Eventually(t, func() bool { return peak.Load() == 4 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()
}

func TestPool_DoReturnsWhenContextEnds(t *testing.T) {
	p := New(1, 0)
	defer p.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func(context.Context) {
			close(started)
			<-release
		})
	}()
	defer close(release)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Do(ctx, func(context.Context) {})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_RejectsEndedContext(t *testing.T) {
	p := New(1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	err := p.Do(ctx, func(context.Context) { ran.Store(true) })
	p.Close()

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran.Load())
}

func TestPool_Close(t *testing.T) {
	p := New(2, 2)
	p.Close()
	p.Close()

	err := p.Do(context.Background(), func(context.Context) {})

	assert.ErrorIs(t, err, ErrPoolClosed)
}
