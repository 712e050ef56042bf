// Package agentregistry implements the closed-set agent registry
// (spec.md §3, §9): role -> agent is a total function over the fixed role
// set, each agent carries status/metrics and a bounded conversation memory
// ring.
//
// Grounded on the sync.RWMutex-guarded name-keyed map in
// internal/specialists/registry.go and the bounded-history handling of
// internal/agents/memory.go.
package agentregistry

import (
	"sync"
	"time"
)

// Role is the closed set of executive identities (spec.md §3).
type Role string

const (
	RoleDirector        Role = "CEO/Director"
	RoleCTO             Role = "CTO"
	RoleCFO             Role = "CFO"
	RoleCMO             Role = "CMO"
	RoleCOO             Role = "COO"
	RoleSales           Role = "Sales"
	RoleCustomerService Role = "Customer-Service"
)

// AllRoles lists every role in the closed set.
var AllRoles = []Role{RoleDirector, RoleCTO, RoleCFO, RoleCMO, RoleCOO, RoleSales, RoleCustomerService}

// Status is the agent's operational status.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusError    Status = "error"
)

// Metrics is an agent's cumulative performance counters (spec.md §3).
type Metrics struct {
	TotalQueries      int
	Successful        int
	Failed            int
	TotalLatency      time.Duration
}

// AverageLatency returns the mean latency across all completed queries, or
// zero if none have completed.
func (m Metrics) AverageLatency() time.Duration {
	if m.TotalQueries == 0 {
		return 0
	}
	return m.TotalLatency / time.Duration(m.TotalQueries)
}

// MemoryEntry is one conversation-memory ring entry (spec.md §9).
type MemoryEntry struct {
	Sender    string
	Content   string
	Timestamp time.Time
	Metadata  map[string]any
}

// Agent is a role-specialized responder (spec.md §3, GLOSSARY).
type Agent struct {
	mu sync.Mutex

	ID         string
	Role       Role
	Name       string
	Status     Status
	LastActive time.Time
	Metrics    Metrics

	maxHistory int
	history    []MemoryEntry
}

// NewAgent constructs an Agent with a bounded conversation-memory ring of
// size maxHistory (default 50 if non-positive).
func NewAgent(id string, role Role, name string, maxHistory int) *Agent {
	if maxHistory <= 0 {
		maxHistory = 50
	}
	return &Agent{
		ID:         id,
		Role:       role,
		Name:       name,
		Status:     StatusActive,
		LastActive: time.Now(),
		maxHistory: maxHistory,
	}
}

// Remember appends an entry to the agent's conversation ring, trimming the
// oldest entry once maxHistory is exceeded.
func (a *Agent) Remember(sender, content string, metadata map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, MemoryEntry{Sender: sender, Content: content, Timestamp: time.Now(), Metadata: metadata})
	if len(a.history) > a.maxHistory {
		a.history = a.history[len(a.history)-a.maxHistory:]
	}
	a.LastActive = time.Now()
}

// History returns a copy of the agent's conversation memory ring, oldest
// first.
func (a *Agent) History() []MemoryEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]MemoryEntry(nil), a.history...)
}

// RecordQuery updates the agent's cumulative metrics for one completed (or
// failed) query.
func (a *Agent) RecordQuery(success bool, latency time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Metrics.TotalQueries++
	if success {
		a.Metrics.Successful++
	} else {
		a.Metrics.Failed++
	}
	a.Metrics.TotalLatency += latency
	a.LastActive = time.Now()
}

// Snapshot is a copyable, mutex-free view of an Agent's public state, safe to
// hand to callers outside the registry.
type Snapshot struct {
	ID         string
	Role       Role
	Name       string
	Status     Status
	LastActive time.Time
	Metrics    Metrics
	History    []MemoryEntry
}

// Snapshot returns a value copy of the agent's public state.
func (a *Agent) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		ID:         a.ID,
		Role:       a.Role,
		Name:       a.Name,
		Status:     a.Status,
		LastActive: a.LastActive,
		Metrics:    a.Metrics,
		History:    append([]MemoryEntry(nil), a.history...),
	}
}
