package agent

import (
	"context"
	"sync"

	logx "github.com/potatobot-core/server/pkg/logger"
)

// Factory builds the agent for a session id on first use.
type Factory func(ctx context.Context, sessionID string) (*Agent, error)

// Registry maps opaque session identifiers to agents. Create-if-absent is
// atomic: the lock is held across construction, so two simultaneous first
// requests for a new session id get the same agent. Session ids are never
// validated for format, and agents are never evicted; a session lives for
// the process lifetime.
type Registry struct {
	mu      sync.Mutex
	agents  map[string]*Agent
	factory Factory
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		agents:  make(map[string]*Agent),
		factory: factory,
	}
}

// GetOrCreate returns the session's agent, constructing it on first use.
func (r *Registry) GetOrCreate(ctx context.Context, sessionID string) (*Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.agents[sessionID]; ok {
		return a, nil
	}

	a, err := r.factory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	r.agents[sessionID] = a

	logx.Info().Str("session_id", sessionID).Int("sessions", len(r.agents)).Msg("new session")
	return a, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.agents)
}
