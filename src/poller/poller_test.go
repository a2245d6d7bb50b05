package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNewRejectsBadArguments(t *testing.T) {
	_, err := New(0, func(ctx context.Context) (int, error) { return 0, nil }, nil)
	assert.Error(t, err)

	_, err = New[int](time.Second, nil, nil)
	assert.Error(t, err)
}

func TestFetchesImmediatelyThenOnInterval(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	p, err := New(20*time.Millisecond, func(ctx context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, nil)
	require.NoError(t, err)

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	assert.Eventually(t, func() bool { return p.State().Fetches >= 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return p.State().Fetches >= 3 }, time.Second, 5*time.Millisecond)

	state := p.State()
	assert.NoError(t, state.Err)
	assert.GreaterOrEqual(t, state.Value, 3)
	assert.False(t, state.UpdatedAt.IsZero())
}

func TestFailureIsRecordedAndLastValueKept(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("rpc down")
	var calls atomic.Int32
	updates := make(chan State[string], 8)
	p, err := New(10*time.Millisecond, func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "120.50", nil
		}
		return "", boom
	}, func(s State[string]) {
		select {
		case updates <- s:
		default:
		}
	})
	require.NoError(t, err)

	require.NoError(t, p.Start(context.Background()))

	first := <-updates
	assert.NoError(t, first.Err)
	assert.Equal(t, "120.50", first.Value)

	second := <-updates
	assert.ErrorIs(t, second.Err, boom)
	assert.Equal(t, "120.50", second.Value)
	assert.Equal(t, 1, second.Failures)

	p.Stop()
}

func TestStopIsIdempotentAndStartOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	p, err := New(time.Hour, func(ctx context.Context) (int, error) { return 1, nil }, nil)
	require.NoError(t, err)

	p.Stop()
	require.NoError(t, p.Start(context.Background()))
	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyRunning)

	p.Stop()
	p.Stop()
}

func TestRunReturnsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	p, err := New(time.Hour, func(ctx context.Context) (int, error) { return 7, nil }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return p.State().Fetches == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 7, p.State().Value)
}

func TestSlowFetchCancelledOnStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	p, err := New(time.Hour, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, nil)
	require.NoError(t, err)

	require.NoError(t, p.Start(context.Background()))
	p.Stop()

	assert.Equal(t, 0, p.State().Fetches)
}
