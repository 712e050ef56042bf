// Package tasks implements the Task Manager (spec.md §4.2): the
// authoritative lifecycle store for work units, with status-transition
// validation, dependency-DAG checks, and an append-only note trail.
//
// Grounded on the row shape and versioned-mutation pattern of
// internal/persistence/databases/postgres_doc.go and the per-entity
// sync.RWMutex indexing pattern of internal/specialists/registry.go.
package tasks

import "time"

// Status is one of the six states in the §4.2 state machine.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusBlocked    Status = "Blocked"
	StatusFailed     Status = "Failed"
	StatusCancelled  Status = "Cancelled"
)

// IsTerminal reports whether s is one of the terminal states.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// transitions enumerates the state machine's edges, exactly matching the
// diagram in spec.md §4.2. A transition not listed here is rejected.
var transitions = map[Status]map[Status]bool{
	StatusPending:    {StatusInProgress: true, StatusCancelled: true},
	StatusInProgress: {StatusCompleted: true, StatusBlocked: true, StatusFailed: true},
	StatusBlocked:    {StatusInProgress: true},
	StatusCompleted:  {},
	StatusFailed:     {},
	StatusCancelled:  {},
}

// CanTransition reports whether moving from `from` to `to` is a valid edge.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	edges, ok := transitions[from]
	if !ok {
		return false
	}
	return edges[to]
}

// Note is one entry in a task's append-only audit trail.
type Note struct {
	Content   string
	Timestamp time.Time
}

// Task is a tracked unit of work (spec.md §3).
type Task struct {
	ID           string
	Title        string
	Description  string
	AssignedTo   string
	CreatedBy    string
	Priority     int // 1..5, 5 highest
	Status       Status
	Progress     float64 // 0.0..1.0
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
	DueDate      *time.Time
	Dependencies []string
	Metadata     map[string]any
	Notes        []Note
}

func clampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// clone returns a defensive deep-enough copy safe to hand to callers.
func (t *Task) clone() *Task {
	cp := *t
	cp.Dependencies = append([]string(nil), t.Dependencies...)
	cp.Notes = append([]Note(nil), t.Notes...)
	if t.Metadata != nil {
		cp.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			cp.Metadata[k] = v
		}
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		cp.CompletedAt = &ts
	}
	if t.DueDate != nil {
		ts := *t.DueDate
		cp.DueDate = &ts
	}
	return &cp
}
