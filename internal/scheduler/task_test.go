package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_TriggerRunsJob(t *testing.T) {
	var calls atomic.Int32
	task := NewTask("test", time.Hour, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	assert.True(t, task.Trigger(context.Background()))
	assert.True(t, task.Trigger(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, task.InFlight())
}

func TestTask_TriggerSingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	task := NewTask("test", time.Hour, func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})

	result := make(chan bool, 1)
	go func() { result <- task.Trigger(context.Background()) }()

	<-started
	assert.True(t, task.InFlight())
	assert.False(t, task.Trigger(context.Background()), "concurrent trigger must be skipped")

	close(release)
	assert.True(t, <-result)
	assert.False(t, task.InFlight())
}

func TestTask_JobErrorDoesNotPanic(t *testing.T) {
	task := NewTask("test", time.Hour, func(ctx context.Context) error {
		return errors.New("boom")
	})
	assert.True(t, task.Trigger(context.Background()))
}

func TestTask_StartStop(t *testing.T) {
	var calls atomic.Int32
	task := NewTask("test", 5*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, task.Start(context.Background()))
	require.NoError(t, task.Start(context.Background()))
	assert.True(t, task.Running())

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	task.Stop()
	assert.False(t, task.Running())

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no ticks after Stop")

	task.Stop()
}

func TestTask_StopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := NewTask("test", time.Hour, func(ctx context.Context) error { return nil })

	require.NoError(t, task.Start(ctx))
	cancel()
	task.Stop()
	assert.False(t, task.Running())
}

func TestTask_StartRejectsNonPositiveInterval(t *testing.T) {
	var calls atomic.Int32
	for _, interval := range []time.Duration{0, -time.Second} {
		task := NewTask("test", interval, func(ctx context.Context) error {
			calls.Add(1)
			return nil
		})

		assert.ErrorIs(t, task.Start(context.Background()), ErrInvalidInterval)
		assert.False(t, task.Running())
		task.Stop()
	}

	assert.True(t, NewTask("test", 0, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}).Trigger(context.Background()), "trigger works without the ticker")
	assert.Equal(t, int32(1), calls.Load())
}
