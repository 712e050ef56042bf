package tasks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"execteam/internal/coreerr"
)

// recordAsync mirrors t to the optional Postgres recorder without blocking
// the caller (spec.md §4.2: the in-memory store is authoritative; Postgres
// is a best-effort durability mirror).
func (m *Manager) recordAsync(t *Task) {
	if m.recorder == nil {
		return
	}
	cp := t.clone()
	go m.recorder.Record(context.Background(), cp)
}

// taskCell is a single task plus the mutex that serializes mutations to it.
type taskCell struct {
	mu   sync.Mutex
	task *Task
}

// Manager is the authoritative, concurrency-safe task store (spec.md §4.2).
// The embedded RWMutex guards the maps below; individual task mutations
// additionally take the task's own mutex (see taskCell) so unrelated tasks
// never block each other.
type Manager struct {
	sync.RWMutex

	cells    map[string]*taskCell
	byAssign map[string]map[string]bool // assignee -> set of task ids

	recorder *Recorder
}

// NewManager constructs an empty Task Manager.
func NewManager() *Manager {
	return &Manager{
		cells:    make(map[string]*taskCell),
		byAssign: make(map[string]map[string]bool),
	}
}

// SetRecorder attaches an optional Postgres durability mirror. Safe to call
// once at startup before any tasks are created.
func (m *Manager) SetRecorder(r *Recorder) {
	m.Lock()
	defer m.Unlock()
	m.recorder = r
}

// CreateTaskInput bundles create_task's optional fields.
type CreateTaskInput struct {
	Title        string
	Description  string
	AssignedTo   string
	CreatedBy    string
	Priority     int
	DueDate      *time.Time
	Dependencies []string
	Metadata     map[string]any
}

// CreateTask validates dependencies exist and that the resulting graph stays
// acyclic, then stores a new task in status Pending with progress 0.0.
func (m *Manager) CreateTask(ctx context.Context, in CreateTaskInput) (*Task, error) {
	priority := in.Priority
	if priority < 1 {
		priority = 1
	}
	if priority > 5 {
		priority = 5
	}

	m.Lock()
	defer m.Unlock()

	for _, dep := range in.Dependencies {
		if _, ok := m.cells[dep]; !ok {
			return nil, coreerr.Validation("dependency task not found: "+dep, nil)
		}
	}

	now := time.Now()
	t := &Task{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Description:  in.Description,
		AssignedTo:   in.AssignedTo,
		CreatedBy:    in.CreatedBy,
		Priority:     priority,
		Status:       StatusPending,
		Progress:     0,
		CreatedAt:    now,
		UpdatedAt:    now,
		DueDate:      in.DueDate,
		Dependencies: append([]string(nil), in.Dependencies...),
		Metadata:     in.Metadata,
	}

	if m.wouldCycleLocked(t.ID, t.Dependencies) {
		return nil, coreerr.Conflict("creating this task would introduce a dependency cycle", nil)
	}

	m.cells[t.ID] = &taskCell{task: t}
	m.indexAssigneeLocked(t.AssignedTo, t.ID)
	m.recordAsync(t)
	return t.clone(), nil
}

// wouldCycleLocked reports whether adding a task `id` with the given direct
// dependencies would create a cycle in the dependency DAG. Callers must hold
// m's write lock.
func (m *Manager) wouldCycleLocked(id string, deps []string) bool {
	visited := map[string]bool{id: true}
	var visit func(cur string) bool
	visit = func(cur string) bool {
		cell, ok := m.cells[cur]
		if !ok {
			return false
		}
		for _, dep := range cell.task.Dependencies {
			if dep == id {
				return true
			}
			if visited[dep] {
				continue
			}
			visited[dep] = true
			if visit(dep) {
				return true
			}
		}
		return false
	}
	for _, dep := range deps {
		if dep == id {
			return true
		}
		if visit(dep) {
			return true
		}
	}
	return false
}

func (m *Manager) indexAssigneeLocked(assignee, taskID string) {
	if assignee == "" {
		return
	}
	set, ok := m.byAssign[assignee]
	if !ok {
		set = make(map[string]bool)
		m.byAssign[assignee] = set
	}
	set[taskID] = true
}

func (m *Manager) unindexAssigneeLocked(assignee, taskID string) {
	if set, ok := m.byAssign[assignee]; ok {
		delete(set, taskID)
	}
}

// GetTask returns the task, or a NotFound error.
func (m *Manager) GetTask(taskID string) (*Task, error) {
	m.RLock()
	defer m.RUnlock()
	cell, ok := m.cells[taskID]
	if !ok {
		return nil, coreerr.NotFound("task not found: "+taskID, nil)
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	return cell.task.clone(), nil
}

// withOrderedLocks sorts ids ascending and locks each corresponding cell's
// mutex in that order, preventing deadlock across multi-task operations
// (spec.md §4.2 "Concurrency").
func (m *Manager) withOrderedLocks(ids []string) (cells []*taskCell, unlock func()) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	cells = make([]*taskCell, 0, len(sorted))
	for _, id := range sorted {
		if c, ok := m.cells[id]; ok {
			cells = append(cells, c)
		}
	}
	for _, c := range cells {
		c.mu.Lock()
	}
	return cells, func() {
		for i := len(cells) - 1; i >= 0; i-- {
			cells[i].mu.Unlock()
		}
	}
}

// UpdateStatus validates the transition, clamps progress, forces
// progress=1.0 and sets CompletedAt when transitioning to Completed, appends
// an optional note, and bumps UpdatedAt.
func (m *Manager) UpdateStatus(taskID string, newStatus Status, progress *float64, note string) (*Task, error) {
	m.RLock()
	cell, ok := m.cells[taskID]
	m.RUnlock()
	if !ok {
		return nil, coreerr.NotFound("task not found: "+taskID, nil)
	}

	cell.mu.Lock()
	defer cell.mu.Unlock()
	t := cell.task

	if !CanTransition(t.Status, newStatus) {
		return nil, coreerr.Conflict("invalid status transition "+string(t.Status)+" -> "+string(newStatus), nil)
	}

	t.Status = newStatus
	if progress != nil {
		t.Progress = clampProgress(*progress)
	}
	if newStatus == StatusCompleted {
		t.Progress = 1.0
		now := time.Now()
		t.CompletedAt = &now
	}
	if note != "" {
		t.Notes = append(t.Notes, Note{Content: note, Timestamp: time.Now()})
	}
	t.UpdatedAt = time.Now()
	m.recordAsync(t)
	return t.clone(), nil
}

// Reassign moves a task from its current assignee to newAssignee, updating
// both assignee indices and appending an audit note.
func (m *Manager) Reassign(taskID, newAssignee string) (*Task, error) {
	m.Lock()
	defer m.Unlock()

	cells, unlock := m.withOrderedLocks([]string{taskID})
	defer unlock()
	if len(cells) == 0 {
		return nil, coreerr.NotFound("task not found: "+taskID, nil)
	}
	t := cells[0].task

	prev := t.AssignedTo
	m.unindexAssigneeLocked(prev, taskID)
	t.AssignedTo = newAssignee
	m.indexAssigneeLocked(newAssignee, taskID)
	t.Notes = append(t.Notes, Note{
		Content:   "Reassigned from " + prev + " to " + newAssignee,
		Timestamp: time.Now(),
	})
	t.UpdatedAt = time.Now()
	m.recordAsync(t)
	return t.clone(), nil
}

// AddNote appends a timestamped note to the task's audit trail.
func (m *Manager) AddNote(taskID, content string) (*Task, error) {
	m.RLock()
	cell, ok := m.cells[taskID]
	m.RUnlock()
	if !ok {
		return nil, coreerr.NotFound("task not found: "+taskID, nil)
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	cell.task.Notes = append(cell.task.Notes, Note{Content: content, Timestamp: time.Now()})
	cell.task.UpdatedAt = time.Now()
	m.recordAsync(cell.task)
	return cell.task.clone(), nil
}

// TasksForAgent returns all tasks assigned to agentID, optionally filtered
// by status.
func (m *Manager) TasksForAgent(agentID string, statusFilter *Status) []*Task {
	m.RLock()
	ids := make([]string, 0, len(m.byAssign[agentID]))
	for id := range m.byAssign[agentID] {
		ids = append(ids, id)
	}
	m.RUnlock()

	out := make([]*Task, 0, len(ids))
	for _, id := range ids {
		if t, err := m.GetTask(id); err == nil {
			if statusFilter == nil || t.Status == *statusFilter {
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// AllTasks returns every task, optionally filtered by status.
func (m *Manager) AllTasks(statusFilter *Status) []*Task {
	m.RLock()
	ids := make([]string, 0, len(m.cells))
	for id := range m.cells {
		ids = append(ids, id)
	}
	m.RUnlock()

	out := make([]*Task, 0, len(ids))
	for _, id := range ids {
		if t, err := m.GetTask(id); err == nil {
			if statusFilter == nil || t.Status == *statusFilter {
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// DeleteTask removes a task from the store and its assignee index,
// regardless of whether it is in a terminal state.
func (m *Manager) DeleteTask(taskID string) error {
	m.Lock()
	defer m.Unlock()
	cell, ok := m.cells[taskID]
	if !ok {
		return coreerr.NotFound("task not found: "+taskID, nil)
	}
	m.unindexAssigneeLocked(cell.task.AssignedTo, taskID)
	delete(m.cells, taskID)
	if m.recorder != nil {
		r := m.recorder
		go r.Delete(context.Background(), taskID)
	}
	return nil
}
