package nav

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"onboarding_flow/src/logger"
)

// Func adapts a plain function to the core.Navigator contract
type Func func(ctx context.Context, path string) error

// GoTo calls f
func (f Func) GoTo(ctx context.Context, path string) error {
	return f(ctx, path)
}

// History is an in-process navigator that remembers every visited route.
// Hosts without a router (the CLI, tests) read the current route from it.
type History struct {
	mu     sync.RWMutex
	visits []string
	onMove func(path string)
}

// NewHistory creates an empty history. onMove, if set, runs after each move.
func NewHistory(onMove func(path string)) *History {
	return &History{onMove: onMove}
}

// GoTo records path as the current route
func (h *History) GoTo(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("route must be absolute: %q", path)
	}

	h.mu.Lock()
	h.visits = append(h.visits, path)
	h.mu.Unlock()

	logger.Debug().Str("route", path).Msg("navigated")
	if h.onMove != nil {
		h.onMove(path)
	}
	return nil
}

// Current returns the last visited route, or "" before the first move
func (h *History) Current() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.visits) == 0 {
		return ""
	}
	return h.visits[len(h.visits)-1]
}

// Visits returns every route in visiting order
func (h *History) Visits() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return append([]string(nil), h.visits...)
}
