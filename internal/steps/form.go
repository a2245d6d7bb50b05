package steps

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"onboarding_flow/internal/core"
	"onboarding_flow/pkg"

	"github.com/bytedance/sonic"
)

// Advancer is the slice of the step controller a form needs
type Advancer interface {
	Advance(ctx context.Context, partial pkg.Record) (core.Transition, error)
}

// Form is the local editable state of one step, seeded from the draft
type Form struct {
	step   core.StepDefinition
	fields []core.FieldSpec
	values pkg.Record
}

// NewForm binds a form to stepID and seeds it with the draft values the step owns
func NewForm(flow *core.FlowDefinition, stepID string, draft pkg.Record) (*Form, error) {
	step, ok := flow.Step(stepID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownStep, stepID)
	}
	return &Form{
		step:   step,
		fields: flow.StepFields(step),
		values: draft.Pick(step.Fields),
	}, nil
}

// Step returns the step the form belongs to
func (f *Form) Step() core.StepDefinition {
	return f.step
}

// Fields returns the schema entries of the form, in display order
func (f *Form) Fields() []core.FieldSpec {
	return f.fields
}

// Value returns the current value of a field; ok is false for an empty field
func (f *Form) Value(name string) (any, bool) {
	v, ok := f.values[name]
	if !ok || pkg.IsEmpty(v) {
		return nil, false
	}
	return v, true
}

// Set assigns a typed value to an owned field
func (f *Form) Set(name string, value any) error {
	if _, ok := f.field(name); !ok {
		return fmt.Errorf("field %s does not belong to step %s", name, f.step.ID)
	}
	f.values[name] = value
	return nil
}

// SetInput parses raw text according to the field kind and assigns it.
// Blank input clears the field, and the cleared value is submitted so it
// replaces what the draft held.
func (f *Form) SetInput(name, raw string) error {
	field, ok := f.field(name)
	if !ok {
		return fmt.Errorf("field %s does not belong to step %s", name, f.step.ID)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		f.Clear(name)
		return nil
	}

	switch field.Kind {
	case core.FieldNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("field %s expects a number: %w", name, err)
		}
		f.values[name] = n
	case core.FieldObject:
		var obj map[string]any
		if err := sonic.UnmarshalString(raw, &obj); err != nil || obj == nil {
			return fmt.Errorf("field %s expects a JSON object", name)
		}
		f.values[name] = obj
	default:
		f.values[name] = raw
	}
	return nil
}

// Clear empties an owned field: "" for strings, nil for numbers and objects
func (f *Form) Clear(name string) {
	field, ok := f.field(name)
	if !ok {
		return
	}
	if field.Kind == core.FieldNumber || field.Kind == core.FieldObject {
		f.values[name] = nil
		return
	}
	f.values[name] = ""
}

// Validate runs the local non-empty checks on required fields
func (f *Form) Validate() error {
	var missing []string
	for _, field := range f.fields {
		if field.Required && pkg.IsEmpty(f.values[field.Name]) {
			missing = append(missing, field.Name)
		}
	}
	if len(missing) > 0 {
		return &core.ValidationError{Step: f.step.ID, Missing: missing}
	}
	return nil
}

// Partial builds the update this step submits: every owned field that is
// seeded or was set, cleared fields included
func (f *Form) Partial() pkg.Record {
	partial := pkg.NewRecord()
	for _, field := range f.fields {
		if v, ok := f.values[field.Name]; ok {
			partial[field.Name] = v
		}
	}
	return partial
}

// Submit validates the form and hands its partial update to the controller
func (f *Form) Submit(ctx context.Context, adv Advancer) (core.Transition, error) {
	if err := f.Validate(); err != nil {
		return core.Transition{}, err
	}
	return adv.Advance(ctx, f.Partial())
}

func (f *Form) field(name string) (core.FieldSpec, bool) {
	for _, field := range f.fields {
		if field.Name == name {
			return field, true
		}
	}
	return core.FieldSpec{}, false
}
