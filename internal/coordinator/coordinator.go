package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"execteam/internal/agentregistry"
	"execteam/internal/delegation"
	"execteam/internal/llmclient"
	"execteam/internal/retrieval"
)

// Coordinator is the Request Coordinator façade (spec.md §4.5): resolves an
// assignee via the Delegation Engine, optionally retrieves context via the
// Hybrid Retrieval Index, and hands the LLM call to a bounded worker pool.
type Coordinator struct {
	delegation *delegation.Engine
	index      *retrieval.Index
	registry   *agentregistry.Registry
	llm        llmclient.Backend
	pool       *WorkerPool
	pending    *Table
	kbTopK     int
}

// New constructs a Coordinator. kbTopK defaults to 4 (spec.md §4.5 "top-k
// small, e.g. 4") when non-positive.
func New(delegationEngine *delegation.Engine, index *retrieval.Index, registry *agentregistry.Registry, llm llmclient.Backend, pool *WorkerPool, kbTopK int) *Coordinator {
	if kbTopK <= 0 {
		kbTopK = 4
	}
	return &Coordinator{
		delegation: delegationEngine, index: index, registry: registry, llm: llm,
		pool: pool, pending: NewTable(), kbTopK: kbTopK,
	}
}

// SubmitInput bundles submit's parameters (spec.md §4.5, §6).
type SubmitInput struct {
	MessageText string
	RoleHint    agentregistry.Role
	UseKB       bool
	ModelHint   string
	Temperature *float64
	MaxTokens   *int
}

// Submit is non-blocking: it resolves the assignee, creates a Pending
// Request in Generating, and enqueues the LLM call on the worker pool,
// returning immediately with the new request's id.
func (c *Coordinator) Submit(ctx context.Context, in SubmitInput) (string, error) {
	delegated, err := c.delegation.Delegate(ctx, delegation.Input{UserText: in.MessageText, RoleHint: in.RoleHint})
	if err != nil {
		return "", err
	}

	req := &PendingRequest{
		MessageID:       uuid.NewString(),
		UserText:        in.MessageText,
		TargetRole:      delegated.AssigneeRole,
		AssignedAgentID: delegated.AssigneeAgentID,
		Status:          StatusGenerating,
		CreatedAt:       time.Now(),
	}
	c.pending.put(req)

	if agent, err := c.registry.ByID(delegated.AssigneeAgentID); err == nil {
		agent.Remember("user", in.MessageText, nil)
	}

	var snippets []string
	if in.UseKB && c.index != nil {
		results, err := c.index.Search(ctx, in.MessageText, c.kbTopK, 0.7, 0.3, nil)
		if err == nil {
			for _, r := range results {
				snippets = append(snippets, r.Content)
			}
		}
	}

	systemPrompt := fmt.Sprintf("You are the %s on an executive team. Respond helpfully and concisely.", delegated.AssigneeRole)
	llmReq := llmclient.Request{
		Role: string(delegated.AssigneeRole), SystemPrompt: systemPrompt, UserPrompt: in.MessageText,
		ContextSnippets: snippets, ModelHint: in.ModelHint, Temperature: in.Temperature, MaxTokens: in.MaxTokens,
	}

	c.pool.Submit(Job{
		Request:   req,
		AgentID:   delegated.AssigneeAgentID,
		StartedAt: time.Now(),
		Run: func(jobCtx context.Context) (string, error) {
			return c.llm.Generate(jobCtx, llmReq)
		},
	})

	return req.MessageID, nil
}

// Poll returns the current state of a Pending Request. Once Complete,
// further polls are idempotent (spec.md §4.5).
func (c *Coordinator) Poll(messageID string) (Snapshot, error) {
	req, err := c.pending.get(messageID)
	if err != nil {
		return Snapshot{}, err
	}
	return req.Snapshot(), nil
}

// Cancel sets status=Error with error="cancelled" if still Generating;
// otherwise a no-op (spec.md §4.5).
func (c *Coordinator) Cancel(messageID string) error {
	req, err := c.pending.get(messageID)
	if err != nil {
		return err
	}
	cancelled := "cancelled"
	req.writeTerminal(StatusError, nil, &cancelled)
	return nil
}
