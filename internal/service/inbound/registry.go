// Package inbound holds the actions the pull orchestrator runs for each
// profile to bring registry-side changes home.
package inbound

import (
	"context"
	"fmt"

	"github.com/heartmarshall/orcid-sync/internal/domain"
)

// Action is one inbound step. Apply may change p's metadata; the caller
// persists the profile once all actions ran.
type Action interface {
	Name() string
	Apply(ctx context.Context, p *domain.Profile, orcid string) error
}

// Registry is the ordered set of actions a pull run executes.
type Registry struct {
	actions []Action
}

// NewRegistry picks the actions named in names, in that order, from
// available. Unknown and repeated names are rejected.
func NewRegistry(names []string, available ...Action) (*Registry, error) {
	byName := make(map[string]Action, len(available))
	for _, a := range available {
		byName[a.Name()] = a
	}

	seen := make(map[string]struct{}, len(names))
	r := &Registry{actions: make([]Action, 0, len(names))}
	for _, n := range names {
		a, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("inbound: unknown action %q", n)
		}
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("inbound: action %q listed twice", n)
		}
		seen[n] = struct{}{}
		r.actions = append(r.actions, a)
	}
	return r, nil
}

// Actions returns the actions in execution order.
func (r *Registry) Actions() []Action {
	out := make([]Action, len(r.actions))
	copy(out, r.actions)
	return out
}

// Names returns the action names in execution order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.actions))
	for i, a := range r.actions {
		out[i] = a.Name()
	}
	return out
}
