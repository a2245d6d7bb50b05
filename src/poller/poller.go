package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"onboarding_flow/src/logger"

	"github.com/rs/zerolog"
)

var ErrAlreadyRunning = errors.New("poller already running")

// FetchFunc loads one fresh value
type FetchFunc[T any] func(ctx context.Context) (T, error)

// State is the latest outcome of the poller. Value keeps the last successful
// fetch; Err holds the failure of the most recent fetch, if any.
type State[T any] struct {
	Value     T
	Err       error
	UpdatedAt time.Time
	Fetches   int
	Failures  int
}

// Poller fetches a value once on start and then on a fixed interval. A failed
// fetch is recorded in State and retried only on the next tick.
type Poller[T any] struct {
	interval time.Duration
	fetch    FetchFunc[T]
	onUpdate func(State[T])
	log      zerolog.Logger

	mu     sync.RWMutex
	state  State[T]
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a poller. onUpdate, when set, is called from the polling
// goroutine after every fetch.
func New[T any](interval time.Duration, fetch FetchFunc[T], onUpdate func(State[T])) (*Poller[T], error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", interval)
	}
	if fetch == nil {
		return nil, fmt.Errorf("fetch function cannot be nil")
	}
	return &Poller[T]{
		interval: interval,
		fetch:    fetch,
		onUpdate: onUpdate,
		log:      logger.Component("poller"),
	}, nil
}

// Run fetches immediately and then on every tick until ctx is done
func (p *Poller[T]) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.log.Debug().Msg("poller stopped")
			return nil
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// Start runs the poller in its own goroutine until Stop or ctx cancellation
func (p *Poller[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()
	return nil
}

// Stop cancels the polling goroutine and waits for it to exit. Safe to call
// more than once, or on a poller that was never started.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// State returns the latest poll outcome
func (p *Poller[T]) State() State[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Poller[T]) tick(ctx context.Context) {
	value, err := p.fetch(ctx)
	if err != nil && ctx.Err() != nil {
		// teardown raced the fetch
		return
	}

	p.mu.Lock()
	p.state.Fetches++
	p.state.UpdatedAt = time.Now()
	p.state.Err = err
	if err != nil {
		p.state.Failures++
	} else {
		p.state.Value = value
	}
	state := p.state
	p.mu.Unlock()

	if err != nil {
		p.log.Warn().Err(err).Int("failures", state.Failures).Msg("poll fetch failed")
	} else {
		p.log.Debug().Int("fetches", state.Fetches).Msg("poll fetch succeeded")
	}

	if p.onUpdate != nil {
		p.onUpdate(state)
	}
}
