// Package coordinator implements the Request Coordinator (spec.md §4.5):
// the single entry point for "user asks the team a question", fanning
// submitted requests out to a bounded worker pool and exposing a
// polling-friendly status surface.
package coordinator

import (
	"sync"
	"time"

	"execteam/internal/agentregistry"
	"execteam/internal/coreerr"
)

// Status is a Pending Request's lifecycle state (spec.md §3).
type Status string

const (
	StatusGenerating Status = "Generating"
	StatusComplete   Status = "Complete"
	StatusError      Status = "Error"
)

// PendingRequest tracks one submitted user message (spec.md §3). Terminal
// states (Complete, Error) are write-once: writeTerminal enforces "first
// terminal write wins" under concurrent completion/cancellation.
type PendingRequest struct {
	mu sync.Mutex

	MessageID       string
	UserText        string
	TargetRole      agentregistry.Role
	AssignedAgentID string
	Status          Status
	ResponseText    *string
	Error           *string
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// writeTerminal transitions to status with the given response/error,
// setting CompletedAt, but only if still Generating. Returns false if a
// terminal state was already written (the race is resolved in favor of
// whichever write happens first).
func (p *PendingRequest) writeTerminal(status Status, response, errText *string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Status != StatusGenerating {
		return false
	}
	p.Status = status
	p.ResponseText = response
	p.Error = errText
	now := time.Now()
	p.CompletedAt = &now
	return true
}

// Snapshot is a copyable, mutex-free view of a PendingRequest's state.
type Snapshot struct {
	MessageID       string
	UserText        string
	TargetRole      agentregistry.Role
	AssignedAgentID string
	Status          Status
	ResponseText    *string
	Error           *string
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// Snapshot returns a value copy of p's current state.
func (p *PendingRequest) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		MessageID: p.MessageID, UserText: p.UserText, TargetRole: p.TargetRole,
		AssignedAgentID: p.AssignedAgentID, Status: p.Status, ResponseText: p.ResponseText,
		Error: p.Error, CreatedAt: p.CreatedAt, CompletedAt: p.CompletedAt,
	}
}

// Table is the Request Coordinator's Pending Request store (spec.md §3
// "the Request Coordinator owns the Pending Request table").
type Table struct {
	mu  sync.RWMutex
	byID map[string]*PendingRequest
}

// NewTable constructs an empty Table.
func NewTable() *Table {
	return &Table{byID: make(map[string]*PendingRequest)}
}

func (t *Table) put(req *PendingRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID[req.MessageID] = req
}

func (t *Table) get(messageID string) (*PendingRequest, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	req, ok := t.byID[messageID]
	if !ok {
		return nil, coreerr.NotFound("pending request not found: "+messageID, nil)
	}
	return req, nil
}
