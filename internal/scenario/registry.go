// Package scenario holds the fixed registry of role-play setups.
package scenario

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/ashureev/coachlab/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed scenarios.yaml
var builtin []byte

// Registry is an ordered, read-only set of scenarios keyed by name.
type Registry struct {
	ordered []domain.Scenario
	byName  map[string]domain.Scenario
}

// Parse builds a registry from a YAML list of scenarios. Names must be
// non-empty and unique.
func Parse(data []byte) (*Registry, error) {
	var list []domain.Scenario
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode scenarios: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("decode scenarios: no scenarios defined")
	}

	r := &Registry{byName: make(map[string]domain.Scenario, len(list))}
	for i, sc := range list {
		sc.Name = strings.TrimSpace(sc.Name)
		sc.Description = strings.TrimSpace(sc.Description)
		if sc.Name == "" {
			return nil, fmt.Errorf("scenario %d: name is required", i)
		}
		if sc.Description == "" {
			return nil, fmt.Errorf("scenario %q: description is required", sc.Name)
		}
		if _, dup := r.byName[sc.Name]; dup {
			return nil, fmt.Errorf("scenario %q: duplicate name", sc.Name)
		}
		r.byName[sc.Name] = sc
		r.ordered = append(r.ordered, sc)
	}
	return r, nil
}

// Default returns the built-in registry. It panics if the embedded data is
// malformed, which is a build defect.
func Default() *Registry {
	r, err := Parse(builtin)
	if err != nil {
		panic("scenario: invalid built-in registry: " + err.Error())
	}
	return r
}

// Lookup returns the scenario with the given name.
func (r *Registry) Lookup(name string) (domain.Scenario, error) {
	sc, ok := r.byName[name]
	if !ok {
		return domain.Scenario{}, fmt.Errorf("%w: %q (choose one of: %s)",
			domain.ErrUnknownScenario, name, strings.Join(r.Names(), ", "))
	}
	return sc, nil
}

// All returns the scenarios in display order.
func (r *Registry) All() []domain.Scenario {
	out := make([]domain.Scenario, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Names returns the scenario names in display order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.ordered))
	for i, sc := range r.ordered {
		names[i] = sc.Name
	}
	return names
}
