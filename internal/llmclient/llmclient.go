// Package llmclient is the external LLM Backend collaborator (spec.md §1:
// "a black-box generate(role, system_prompt, user_prompt, context_snippets)
// -> string capability, possibly remote, possibly local"). The core never
// imports a concrete provider SDK; callers plug in an implementation of
// Backend.
package llmclient

import "context"

// Request bundles one generation call's inputs (spec.md §1, §4.5).
type Request struct {
	Role            string
	SystemPrompt    string
	UserPrompt      string
	ContextSnippets []string
	ModelHint       string
	Temperature     *float64
	MaxTokens       *int
}

// Backend is the external LLM collaborator boundary.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}
