package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSessions struct {
	calls   atomic.Int32
	maxIdle atomic.Int64
}

func (c *countingSessions) Reap(maxIdle time.Duration) int {
	c.calls.Add(1)
	c.maxIdle.Store(int64(maxIdle))
	return 1
}

type countingPurger struct {
	calls atomic.Int32
}

func (c *countingPurger) Purge() int {
	c.calls.Add(1)
	return 0
}

func TestRunOnce(t *testing.T) {
	sessions := &countingSessions{}
	purger := &countingPurger{}
	w := NewSessionReaper(sessions, purger, time.Minute, 30*time.Minute)

	w.RunOnce()

	assert.Equal(t, int32(1), sessions.calls.Load())
	assert.Equal(t, int64(30*time.Minute), sessions.maxIdle.Load())
	assert.Equal(t, int32(1), purger.calls.Load())
}

func TestStartStop(t *testing.T) {
	sessions := &countingSessions{}
	w := NewSessionReaper(sessions, nil, 5*time.Millisecond, time.Minute)

	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(context.Background()) }()

	require.Eventually(t, func() bool { return sessions.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())
	assert.NoError(t, <-errCh)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	w := NewSessionReaper(&countingSessions{}, nil, time.Hour, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()
	cancel()

	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestStopWithoutStart(t *testing.T) {
	w := NewSessionReaper(&countingSessions{}, nil, time.Hour, time.Minute)
	assert.NoError(t, w.Stop())
}

func TestNonPositiveDurationsUseDefaults(t *testing.T) {
	sessions := &countingSessions{}
	w := NewSessionReaper(sessions, nil, 0, -time.Second)
	assert.Equal(t, DefaultReapInterval, w.interval)

	w.RunOnce()
	assert.Equal(t, int64(DefaultMaxIdle), sessions.maxIdle.Load())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}
