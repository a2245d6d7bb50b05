package core

import (
	"context"
	"time"

	"onboarding_flow/pkg"
)

// Complete is the terminal state every flow ends in. It is never a step id.
const Complete = "complete"

// FieldKind defines the value type a field accepts
type FieldKind string

const (
	FieldString FieldKind = "string"
	FieldNumber FieldKind = "number"
	FieldObject FieldKind = "object"
)

// FieldSpec describes one field of a flow's schema
type FieldSpec struct {
	Name     string    `json:"name" yaml:"name" toml:"name"`
	Label    string    `json:"label,omitempty" yaml:"label" toml:"label"`
	Kind     FieldKind `json:"kind,omitempty" yaml:"kind" toml:"kind"`
	Required bool      `json:"required" yaml:"required" toml:"required"`
}

// Edge is a possible transition out of a step. Edges are tried by ascending
// priority; an edge with no When condition always matches.
type Edge struct {
	To       string         `json:"to" yaml:"to" toml:"to"`
	When     map[string]any `json:"when,omitempty" yaml:"when" toml:"when"`
	Priority int            `json:"priority" yaml:"priority" toml:"priority"`
}

// StepDefinition is one page of a flow, owning a subset of the schema fields
type StepDefinition struct {
	ID     string   `json:"id" yaml:"id" toml:"id"`
	Title  string   `json:"title,omitempty" yaml:"title" toml:"title"`
	Route  string   `json:"route" yaml:"route" toml:"route"`
	Fields []string `json:"fields" yaml:"fields" toml:"fields"`
	// Next is empty for a plain linear step: it falls through to the
	// following step, or to Complete for the last one.
	Next []Edge `json:"next,omitempty" yaml:"next" toml:"next"`
	// Back optionally names the step a "back" action returns to
	Back string `json:"back,omitempty" yaml:"back" toml:"back"`
}

// FlowDefinition is the central transition table for one onboarding flow
type FlowDefinition struct {
	Name          string           `json:"name" yaml:"name" toml:"name"`
	Title         string           `json:"title,omitempty" yaml:"title" toml:"title"`
	StorageKey    string           `json:"storage_key" yaml:"storage_key" toml:"storage_key"`
	EntryRoute    string           `json:"entry_route" yaml:"entry_route" toml:"entry_route"`
	CompleteRoute string           `json:"complete_route" yaml:"complete_route" toml:"complete_route"`
	Fields        []FieldSpec      `json:"fields" yaml:"fields" toml:"fields"`
	Steps         []StepDefinition `json:"steps" yaml:"steps" toml:"steps"`
}

// Session is the runtime state of one flow instance. It is never persisted;
// only its Draft is, through the draft store.
type Session struct {
	ID        string     `json:"id"`
	Flow      string     `json:"flow"`
	Current   string     `json:"current"` // step id or Complete
	Draft     pkg.Record `json:"draft"`
	History   []string   `json:"history,omitempty"`
	StartedAt time.Time  `json:"started_at"`
}

// Transition reports the outcome of a navigation action
type Transition struct {
	From     string     `json:"from"`
	To       string     `json:"to"`
	Route    string     `json:"route"`
	Complete bool       `json:"complete"`
	Draft    pkg.Record `json:"draft"`
	// PersistErr is set when the draft could not be written through.
	// Navigation has still happened.
	PersistErr error `json:"-"`
}

// Navigator moves the host between named routes
type Navigator interface {
	GoTo(ctx context.Context, path string) error
}

// DraftStore is the persistence contract the controller needs
type DraftStore interface {
	Load(ctx context.Context, flowKey string) (pkg.Record, error)
	Merge(ctx context.Context, flowKey string, partial pkg.Record) (pkg.Record, error)
	Clear(ctx context.Context, flowKey string) error
}
