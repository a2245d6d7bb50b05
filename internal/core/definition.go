package core

import (
	"fmt"
	"sort"
	"strings"

	"onboarding_flow/pkg"
)

// Validate checks the structural invariants of a flow table:
//   - every step field belongs to the flow schema
//   - edges only point forward (later step or Complete), so the graph is acyclic
//   - a step with conditional edges also has an unconditional fallback
//   - every step is reachable from the first one
func (f *FlowDefinition) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: flow name cannot be empty", ErrInvalidFlow)
	}
	if strings.TrimSpace(f.StorageKey) == "" {
		return invalidFlow(f.Name, "storage key cannot be empty")
	}
	if len(f.Steps) == 0 {
		return invalidFlow(f.Name, "flow has no steps")
	}

	schema := make(map[string]FieldSpec, len(f.Fields))
	for _, field := range f.Fields {
		if field.Name == "" {
			return invalidFlow(f.Name, "field name cannot be empty")
		}
		if _, dup := schema[field.Name]; dup {
			return invalidFlow(f.Name, "duplicate field %s", field.Name)
		}
		switch field.Kind {
		case "", FieldString, FieldNumber, FieldObject:
		default:
			return invalidFlow(f.Name, "field %s has unknown kind %s", field.Name, field.Kind)
		}
		schema[field.Name] = field
	}

	index := make(map[string]int, len(f.Steps))
	for i, step := range f.Steps {
		if step.ID == "" || step.ID == Complete {
			return invalidFlow(f.Name, "step %d has an invalid id %q", i, step.ID)
		}
		if _, dup := index[step.ID]; dup {
			return invalidFlow(f.Name, "duplicate step %s", step.ID)
		}
		index[step.ID] = i
	}

	owner := make(map[string]string)
	for i, step := range f.Steps {
		if len(step.Fields) == 0 {
			return invalidFlow(f.Name, "step %s owns no fields", step.ID)
		}
		for _, name := range step.Fields {
			if _, ok := schema[name]; !ok {
				return invalidFlow(f.Name, "step %s field %s is not in the flow schema", step.ID, name)
			}
			if prev, taken := owner[name]; taken {
				return invalidFlow(f.Name, "field %s owned by both %s and %s", name, prev, step.ID)
			}
			owner[name] = step.ID
		}

		fallback := len(step.Next) == 0
		for _, edge := range step.Next {
			if len(edge.When) == 0 {
				fallback = true
			}
			if edge.To == Complete {
				continue
			}
			target, ok := index[edge.To]
			if !ok {
				return invalidFlow(f.Name, "step %s points to unknown step %s", step.ID, edge.To)
			}
			if target <= i {
				return invalidFlow(f.Name, "step %s points backwards to %s", step.ID, edge.To)
			}
		}
		if !fallback {
			return invalidFlow(f.Name, "step %s has no unconditional edge", step.ID)
		}

		if step.Back != "" {
			target, ok := index[step.Back]
			if !ok || target >= i {
				return invalidFlow(f.Name, "step %s back target %s must be an earlier step", step.ID, step.Back)
			}
		}
	}

	// the last declared step can only lead to Complete
	last := f.Steps[len(f.Steps)-1]
	for _, edge := range last.Next {
		if edge.To != Complete {
			return invalidFlow(f.Name, "final step %s must lead to %s", last.ID, Complete)
		}
	}

	if unreachable := f.unreachable(); len(unreachable) > 0 {
		return invalidFlow(f.Name, "unreachable steps: %s", strings.Join(unreachable, ", "))
	}

	return nil
}

// First returns the entry step
func (f *FlowDefinition) First() StepDefinition {
	return f.Steps[0]
}

// Step looks up a step by id
func (f *FlowDefinition) Step(id string) (StepDefinition, bool) {
	for _, step := range f.Steps {
		if step.ID == id {
			return step, true
		}
	}
	return StepDefinition{}, false
}

// StepByRoute looks up the step served at route
func (f *FlowDefinition) StepByRoute(route string) (StepDefinition, bool) {
	for _, step := range f.Steps {
		if step.Route == route {
			return step, true
		}
	}
	return StepDefinition{}, false
}

// Field looks up a schema field by name
func (f *FlowDefinition) Field(name string) (FieldSpec, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldSpec{}, false
}

// StepFields returns the schema entries of the fields a step owns, in step order
func (f *FlowDefinition) StepFields(step StepDefinition) []FieldSpec {
	fields := make([]FieldSpec, 0, len(step.Fields))
	for _, name := range step.Fields {
		if field, ok := f.Field(name); ok {
			fields = append(fields, field)
		}
	}
	return fields
}

// RouteFor returns the route of a step id, or the completion route for Complete
func (f *FlowDefinition) RouteFor(id string) string {
	if id == Complete {
		return f.CompleteRoute
	}
	step, _ := f.Step(id)
	return step.Route
}

// edges returns the effective outgoing edges of a step, sorted by priority
func (f *FlowDefinition) edges(step StepDefinition) []Edge {
	if len(step.Next) == 0 {
		for i, s := range f.Steps {
			if s.ID == step.ID && i+1 < len(f.Steps) {
				return []Edge{{To: f.Steps[i+1].ID}}
			}
		}
		return []Edge{{To: Complete}}
	}

	sorted := make([]Edge, len(step.Next))
	copy(sorted, step.Next)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}

// NextStep resolves the successor of step given the current draft
func (f *FlowDefinition) NextStep(step StepDefinition, draft pkg.Record) (string, error) {
	for _, edge := range f.edges(step) {
		if evaluateCondition(edge.When, draft) {
			return edge.To, nil
		}
	}
	return "", fmt.Errorf("%w from step %s", ErrNoTransition, step.ID)
}

// evaluateCondition checks that every key of the condition equals the draft value
func evaluateCondition(condition map[string]any, draft pkg.Record) bool {
	if len(condition) == 0 {
		return true
	}
	for key, expected := range condition {
		actual, exists := draft[key]
		if !exists || !pkg.SameValue(actual, expected) {
			return false
		}
	}
	return true
}

func (f *FlowDefinition) unreachable() []string {
	seen := map[string]bool{f.Steps[0].ID: true}
	// edges only point forward, so one pass in declaration order suffices
	for _, step := range f.Steps {
		if !seen[step.ID] {
			continue
		}
		for _, edge := range f.edges(step) {
			seen[edge.To] = true
		}
	}

	var missing []string
	for _, step := range f.Steps {
		if !seen[step.ID] {
			missing = append(missing, step.ID)
		}
	}
	return missing
}

// ValidateSubmission checks a partial update against the step that submits it:
// only owned fields, required fields non-empty, values of the declared kind.
func (f *FlowDefinition) ValidateSubmission(step StepDefinition, partial pkg.Record) error {
	verr := &ValidationError{Step: step.ID}

	owned := make(map[string]bool, len(step.Fields))
	for _, name := range step.Fields {
		owned[name] = true
	}
	for name := range partial {
		if !owned[name] {
			verr.Foreign = append(verr.Foreign, name)
		}
	}
	sort.Strings(verr.Foreign)

	for _, field := range f.StepFields(step) {
		value, present := partial[field.Name]
		if field.Required && pkg.IsEmpty(value) {
			verr.Missing = append(verr.Missing, field.Name)
			continue
		}
		if present && value != nil && !kindMatches(field.Kind, value) {
			verr.Invalid = append(verr.Invalid, field.Name)
		}
	}

	if verr.empty() {
		return nil
	}
	return verr
}

func kindMatches(kind FieldKind, value any) bool {
	switch kind {
	case FieldNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case FieldObject:
		switch value.(type) {
		case map[string]any, pkg.Record:
			return true
		}
		return false
	default:
		_, ok := value.(string)
		return ok
	}
}
