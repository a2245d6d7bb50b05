package core

import (
	"fmt"
	"sort"
)

// Catalog holds the validated flow definitions by name
type Catalog struct {
	flows map[string]*FlowDefinition
}

// NewCatalog validates every flow and rejects duplicate names or storage keys
func NewCatalog(flows []FlowDefinition) (*Catalog, error) {
	c := &Catalog{flows: make(map[string]*FlowDefinition, len(flows))}
	keys := make(map[string]string, len(flows))

	for i := range flows {
		flow := flows[i]
		if err := flow.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.flows[flow.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate flow %s", ErrInvalidFlow, flow.Name)
		}
		if other, dup := keys[flow.StorageKey]; dup {
			return nil, fmt.Errorf("%w: flows %s and %s share storage key %s", ErrInvalidFlow, other, flow.Name, flow.StorageKey)
		}
		keys[flow.StorageKey] = flow.Name
		c.flows[flow.Name] = &flow
	}

	return c, nil
}

// Get returns the flow registered under name
func (c *Catalog) Get(name string) (*FlowDefinition, error) {
	flow, ok := c.flows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, name)
	}
	return flow, nil
}

// Names lists flow names, sorted
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.flows))
	for name := range c.flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
