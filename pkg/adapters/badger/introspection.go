package badger

import (
	"context"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path     string `json:"path,omitempty"`
	InMemory bool   `json:"in_memory"`
	ReadOnly bool   `json:"read_only"`
	Open     bool   `json:"open"`
	Entries  int    `json:"entries"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	state := StoreState{
		Path:     s.config.Path,
		InMemory: s.config.InMemory,
		ReadOnly: s.config.ReadOnly,
		Open:     s.store != nil,
	}
	if n, err := s.Count(context.Background()); err == nil {
		state.Entries = n
	}
	return state
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "badger-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
