package agentregistry

import (
	"sync"

	"github.com/google/uuid"

	"execteam/internal/coreerr"
)

// Registry holds the single active agent for each role in the closed set
// (spec.md §3: "role -> agent is a total function over the closed set").
type Registry struct {
	mu     sync.RWMutex
	byRole map[Role]*Agent
}

// NewRegistry constructs a Registry. Callers typically populate every role
// via Register at startup per spec.md §3's "created at startup from
// configuration".
func NewRegistry() *Registry {
	return &Registry{byRole: make(map[Role]*Agent)}
}

// Register assigns agent as the current holder of its role, replacing any
// prior holder.
func (r *Registry) Register(a *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRole[a.Role] = a
}

// NewDefaultRegistry builds a Registry with one freshly created, active
// agent per role, named after the role.
func NewDefaultRegistry(maxHistory int) *Registry {
	r := NewRegistry()
	for _, role := range AllRoles {
		r.Register(NewAgent(uuid.NewString(), role, string(role), maxHistory))
	}
	return r
}

// ByRole returns the agent currently holding role, or a NotFound error.
func (r *Registry) ByRole(role Role) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byRole[role]
	if !ok || a.Snapshot().Status != StatusActive {
		return nil, coreerr.NotFound("no active agent for role: "+string(role), nil)
	}
	return a, nil
}

// ByID returns the agent with the given id, or a NotFound error.
func (r *Registry) ByID(agentID string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.byRole {
		if a.ID == agentID {
			return a, nil
		}
	}
	return nil, coreerr.NotFound("no agent with id: "+agentID, nil)
}

// All returns a snapshot of every registered agent.
func (r *Registry) All() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snapshot, 0, len(r.byRole))
	for _, a := range r.byRole {
		out = append(out, a.Snapshot())
	}
	return out
}
