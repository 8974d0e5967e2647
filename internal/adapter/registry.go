package adapter

import "github.com/openduel/sync-server-go/internal/state"

// Factory constructs a fresh adapter instance.
type Factory func() GameAdapter

// Registry maps game type names to adapter factories. It is an explicit
// value built at application startup and passed into the session-creation
// path; there is no ambient global registry.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the game type reported by a probe
// instance. Later registrations overwrite earlier ones.
func (r *Registry) Register(factory Factory) {
	r.factories[factory().GameType()] = factory
}

// Create builds an adapter for the given game type. Unknown types fail
// with *state.UnsupportedGameError.
func (r *Registry) Create(gameType string) (GameAdapter, error) {
	factory, ok := r.factories[gameType]
	if !ok {
		return nil, &state.UnsupportedGameError{GameType: gameType}
	}
	return factory(), nil
}

// GameTypes lists the registered game type names.
func (r *Registry) GameTypes() []string {
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	return out
}

// DefaultRegistry returns a registry with the three reference adapters
// registered. Hosts with custom games build their own registry instead.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(func() GameAdapter { return NewMagicAdapter() })
	r.Register(func() GameAdapter { return NewPokemonAdapter() })
	r.Register(func() GameAdapter { return NewYugiohAdapter() })
	return r
}
