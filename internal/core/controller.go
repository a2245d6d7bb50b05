package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"onboarding_flow/pkg"
	"onboarding_flow/src/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Controller sequences the steps of one flow session. All transitions come
// from the flow definition; step forms only hand over their partial update.
type Controller struct {
	flow   *FlowDefinition
	drafts DraftStore
	nav    Navigator
	log    zerolog.Logger

	mu      sync.Mutex
	session *Session
}

// NewController validates the flow and binds it to a draft store and navigator
func NewController(flow *FlowDefinition, drafts DraftStore, nav Navigator) (*Controller, error) {
	if flow == nil {
		return nil, fmt.Errorf("%w: flow cannot be nil", ErrInvalidFlow)
	}
	if drafts == nil {
		return nil, fmt.Errorf("draft store cannot be nil")
	}
	if nav == nil {
		return nil, fmt.Errorf("navigator cannot be nil")
	}
	if err := flow.Validate(); err != nil {
		return nil, err
	}

	return &Controller{
		flow:   flow,
		drafts: drafts,
		nav:    nav,
		log:    logger.Component("flow").With().Str("flow", flow.Name).Logger(),
	}, nil
}

// Flow returns the definition the controller runs
func (c *Controller) Flow() *FlowDefinition {
	return c.flow
}

// Start opens a session at the first step with the persisted draft. A draft
// that cannot be read starts empty; the error is returned for inspection.
func (c *Controller) Start(ctx context.Context) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	draft, err := c.drafts.Load(ctx, c.flow.StorageKey)
	c.session = &Session{
		ID:        uuid.NewString(),
		Flow:      c.flow.Name,
		Current:   c.flow.First().ID,
		Draft:     draft,
		StartedAt: time.Now(),
	}

	c.log.Info().
		Str("session", c.session.ID).
		Int("draft_fields", len(draft)).
		Msg("flow session started")

	return c.snapshot(), err
}

// Resume starts a session and moves it to the first step on the flow's path
// whose required fields are not yet in the draft, then navigates there.
func (c *Controller) Resume(ctx context.Context) (Transition, error) {
	_, loadErr := c.Start(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.session.Current
	current := from
	var history []string
	for current != Complete {
		step, _ := c.flow.Step(current)
		if c.flow.ValidateSubmission(step, c.session.Draft.Pick(step.Fields)) != nil {
			break
		}
		next, err := c.flow.NextStep(step, c.session.Draft)
		if err != nil {
			break
		}
		history = append(history, current)
		current = next
	}
	c.session.Current = current
	c.session.History = history

	t, err := c.navigate(ctx, from, current)
	t.PersistErr = loadErr
	return t, err
}

// Session returns a copy of the running session
func (c *Controller) Session() (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Session{}, ErrNotStarted
	}
	return c.snapshot(), nil
}

// Current returns the active step; ok is false once the flow is complete
func (c *Controller) Current() (step StepDefinition, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return c.flow.First(), true
	}
	return c.flow.Step(c.session.Current)
}

// Draft returns a copy of the session draft
func (c *Controller) Draft() pkg.Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return pkg.NewRecord()
	}
	return c.session.Draft.Clone()
}

// Advance validates the current step's submission, merges it into the draft,
// resolves the successor from the flow table and navigates to it. A failed
// draft write does not block the move; it is reported in Transition.PersistErr.
func (c *Controller) Advance(ctx context.Context, partial pkg.Record) (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Transition{}, ErrNotStarted
	}
	if c.session.Current == Complete {
		return Transition{}, ErrFlowComplete
	}

	step, ok := c.flow.Step(c.session.Current)
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s", ErrUnknownStep, c.session.Current)
	}

	if err := c.flow.ValidateSubmission(step, partial); err != nil {
		c.log.Debug().Err(err).Str("step", step.ID).Msg("submission rejected")
		return Transition{}, err
	}

	merged, persistErr := c.drafts.Merge(ctx, c.flow.StorageKey, partial)
	if persistErr != nil {
		c.log.Warn().
			Err(persistErr).
			Str("session", c.session.ID).
			Str("step", step.ID).
			Msg("draft not persisted, continuing with in-memory draft")
	}
	c.session.Draft = merged

	next, err := c.flow.NextStep(step, merged)
	if err != nil {
		return Transition{Draft: merged.Clone(), PersistErr: persistErr}, err
	}

	c.session.History = append(c.session.History, step.ID)
	c.session.Current = next

	t, navErr := c.navigate(ctx, step.ID, next)
	t.PersistErr = persistErr
	return t, navErr
}

// Back returns to the step's declared back target, or the previous step in
// the session history. The draft is not touched.
func (c *Controller) Back(ctx context.Context) (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Transition{}, ErrNotStarted
	}

	from := c.session.Current
	target := ""
	if step, ok := c.flow.Step(from); ok && step.Back != "" {
		target = step.Back
	} else if n := len(c.session.History); n > 0 {
		target = c.session.History[n-1]
	}
	if target == "" {
		return Transition{}, ErrNoPrevious
	}

	// drop history back to (and including) the target
	for i := len(c.session.History) - 1; i >= 0; i-- {
		if c.session.History[i] == target {
			c.session.History = c.session.History[:i]
			break
		}
	}
	c.session.Current = target

	return c.navigate(ctx, from, target)
}

// Enter makes stepID the active step, as when its route is loaded directly.
// The draft is not touched.
func (c *Controller) Enter(ctx context.Context, stepID string) (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Transition{}, ErrNotStarted
	}
	if _, ok := c.flow.Step(stepID); !ok {
		return Transition{}, fmt.Errorf("%w: %s", ErrUnknownStep, stepID)
	}

	from := c.session.Current
	c.session.Current = stepID
	return c.navigate(ctx, from, stepID)
}

// Cancel returns to the flow entry route without mutating the draft
func (c *Controller) Cancel(ctx context.Context) (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Transition{}, ErrNotStarted
	}

	from := c.session.Current
	c.session.Current = c.flow.First().ID
	c.session.History = nil

	t := Transition{
		From:  from,
		To:    c.session.Current,
		Route: c.flow.EntryRoute,
		Draft: c.session.Draft.Clone(),
	}
	c.log.Info().Str("session", c.session.ID).Str("from", from).Msg("flow cancelled")
	if err := c.nav.GoTo(ctx, c.flow.EntryRoute); err != nil {
		return t, fmt.Errorf("%w: %s: %w", ErrNavigation, c.flow.EntryRoute, err)
	}
	return t, nil
}

// Reset clears the persisted draft and returns the session to its initial
// empty state at the first step. It does not navigate.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.drafts.Clear(ctx, c.flow.StorageKey)

	id := uuid.NewString()
	if c.session != nil {
		id = c.session.ID
	}
	c.session = &Session{
		ID:        id,
		Flow:      c.flow.Name,
		Current:   c.flow.First().ID,
		Draft:     pkg.NewRecord(),
		StartedAt: time.Now(),
	}

	c.log.Info().Str("session", id).Msg("flow reset")
	return err
}

// navigate must be called with c.mu held
func (c *Controller) navigate(ctx context.Context, from, to string) (Transition, error) {
	t := Transition{
		From:     from,
		To:       to,
		Route:    c.flow.RouteFor(to),
		Complete: to == Complete,
		Draft:    c.session.Draft.Clone(),
	}

	c.log.Info().
		Str("session", c.session.ID).
		Str("from", from).
		Str("to", to).
		Str("route", t.Route).
		Msg("step transition")

	if err := c.nav.GoTo(ctx, t.Route); err != nil {
		return t, fmt.Errorf("%w: %s: %w", ErrNavigation, t.Route, err)
	}
	return t, nil
}

// snapshot must be called with c.mu held
func (c *Controller) snapshot() Session {
	s := *c.session
	s.Draft = c.session.Draft.Clone()
	s.History = append([]string(nil), c.session.History...)
	return s
}
