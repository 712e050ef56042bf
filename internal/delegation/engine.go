// Package delegation implements the Delegation Engine (spec.md §4.3):
// mapping an inbound user message + optional explicit role hint to a
// concrete assignee, by scoring per-role keyword lexicons, then creating a
// task and publishing it on the Message Bus.
//
// Grounded on the contains/regex role-matching shape of
// internal/specialists/router.go, generalized from first-match to scored
// multi-match with a confidence threshold.
package delegation

import (
	"context"
	"regexp"
	"strings"
	"time"

	"execteam/internal/agentregistry"
	"execteam/internal/bus"
	"execteam/internal/coreerr"
	"execteam/internal/tasks"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// tokenize performs the case-folded word-character split shared with the
// Hybrid Retrieval Index's keyword tokenization (spec.md §4.4), dropping
// tokens shorter than 2 characters.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if len(t) >= 2 {
			out = append(out, t)
		}
	}
	return out
}

// Engine is the pure scoring core plus its I/O-performing wrapper
// (Delegate) that creates a task and publishes it on the bus.
type Engine struct {
	lexicons  []Lexicon
	threshold float64
	maxDepth  int

	registry *agentregistry.Registry
	taskMgr  *tasks.Manager
	bus      *bus.Bus
}

// NewEngine constructs a Delegation Engine. lexicons defaults to
// DefaultLexicons() if nil.
func NewEngine(registry *agentregistry.Registry, taskMgr *tasks.Manager, b *bus.Bus, lexicons []Lexicon, threshold float64, maxDepth int) *Engine {
	if lexicons == nil {
		lexicons = DefaultLexicons()
	}
	if threshold <= 0 {
		threshold = 0.4
	}
	if maxDepth <= 0 {
		maxDepth = 3
	}
	return &Engine{lexicons: lexicons, threshold: threshold, maxDepth: maxDepth, registry: registry, taskMgr: taskMgr, bus: b}
}

// RoleScore is one role's score for a given message, for observability.
type RoleScore struct {
	Role       agentregistry.Role
	Raw        float64
	Normalized float64
}

// Score scores every configured role's lexicon against text. The engine is
// pure over (text, lexicons): it never blocks on I/O (spec.md §4.3).
func (e *Engine) Score(text string) []RoleScore {
	lc := strings.ToLower(text)
	tokens := tokenize(text)
	tokenSet := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = true
	}

	out := make([]RoleScore, 0, len(e.lexicons))
	for _, lex := range e.lexicons {
		matched := 0
		for _, phrase := range lex.Phrases {
			phrase = strings.ToLower(phrase)
			if strings.Contains(phrase, " ") {
				if strings.Contains(lc, phrase) {
					matched++
				}
			} else if tokenSet[phrase] {
				matched++
			}
		}
		raw := float64(matched)*lex.BaseWeight
		if matched > 0 {
			raw += lex.DomainConfidence
		}
		// Normalize against "3 matches is full confidence" — a simple,
		// fixed reference point; clamp to [0,1].
		normalizer := 3*lex.BaseWeight + lex.DomainConfidence
		normalized := raw / normalizer
		if normalized > 1 {
			normalized = 1
		}
		out = append(out, RoleScore{Role: lex.Role, Raw: raw, Normalized: normalized})
	}
	return out
}

// pickRole implements the tie-break order: explicit hint > highest score >
// Director/CEO default (spec.md §4.3 step 1-3).
func (e *Engine) pickRole(text string, hint agentregistry.Role) agentregistry.Role {
	if hint != "" {
		if _, err := e.registry.ByRole(hint); err == nil {
			return hint
		}
	}

	scores := e.Score(text)
	var best RoleScore
	found := false
	for _, s := range scores {
		if !found || s.Normalized > best.Normalized {
			best = s
			found = true
		}
	}
	if found && best.Normalized >= e.threshold {
		return best.Role
	}
	return agentregistry.RoleDirector
}

// Input bundles the parameters for a single delegation (spec.md §4.3, §4.5).
type Input struct {
	UserText  string
	RoleHint  agentregistry.Role
	CreatedBy string // originator; "system" if empty

	// ParentTaskID, when set, marks this as a re-delegation: the resulting
	// task's metadata.delegated_from is set to ParentTaskID, and the depth
	// bound (max_delegation_depth) is enforced.
	ParentTaskID string
}

// Result is the outcome of a successful delegation.
type Result struct {
	AssigneeAgentID string
	AssigneeRole    agentregistry.Role
	Task            *tasks.Task
	Scores          []RoleScore
}

// Delegate resolves an assignee, creates a task, and publishes a Task
// message addressed to the assignee (spec.md §4.3 steps 4-5).
func (e *Engine) Delegate(ctx context.Context, in Input) (*Result, error) {
	depth := 0
	if in.ParentTaskID != "" {
		parent, err := e.taskMgr.GetTask(in.ParentTaskID)
		if err != nil {
			return nil, err
		}
		if d, ok := parent.Metadata["delegation_depth"].(int); ok {
			depth = d
		}
		if depth+1 > e.maxDepth {
			return nil, coreerr.Conflict("max_delegation_depth exceeded", nil)
		}
		depth++
	}

	role := e.pickRole(in.UserText, in.RoleHint)
	agent, err := e.registry.ByRole(role)
	if err != nil {
		return nil, err
	}

	createdBy := in.CreatedBy
	if createdBy == "" {
		createdBy = "system"
	}

	title := in.UserText
	if runes := []rune(title); len(runes) > 60 {
		title = string(runes[:60])
	}

	metadata := map[string]any{"delegation_depth": depth}
	if in.ParentTaskID != "" {
		metadata["delegated_from"] = in.ParentTaskID
	}

	t, err := e.taskMgr.CreateTask(ctx, tasks.CreateTaskInput{
		Title:       title,
		Description: in.UserText,
		AssignedTo:  agent.ID,
		CreatedBy:   createdBy,
		Priority:    3,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, err
	}

	e.bus.Publish(&bus.Message{
		SenderAgentID:     createdBy,
		RecipientAgentIDs: []string{agent.ID},
		Content:           in.UserText,
		Kind:              bus.KindTask,
		Metadata:          map[string]any{"task_id": t.ID},
		Timestamp:         time.Now(),
	})

	return &Result{AssigneeAgentID: agent.ID, AssigneeRole: role, Task: t, Scores: e.Score(in.UserText)}, nil
}
