package httpapi

import "time"

// envelope is the shared success/error response shape (spec.md §6): every
// response carries ok plus either data or error, never both.
type envelope struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func ok(data any) envelope { return envelope{OK: true, Data: data} }
func fail(msg string) envelope { return envelope{OK: false, Error: msg} }

// chatSubmitRequest is the body of POST /chat/submit.
type chatSubmitRequest struct {
	Message     string   `json:"message"`
	RoleHint    string   `json:"role_hint,omitempty"`
	UseKB       bool     `json:"use_kb"`
	ModelHint   string   `json:"model_hint,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

type chatSubmitResponse struct {
	MessageID string `json:"message_id"`
}

type chatPollResponse struct {
	MessageID       string     `json:"message_id"`
	Status          string     `json:"status"`
	TargetRole      string     `json:"target_role"`
	AssignedAgentID string     `json:"assigned_agent_id"`
	ResponseText    *string    `json:"response_text,omitempty"`
	Error           *string    `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// kbDocumentRequest is the body of POST/PATCH /kb/document.
type kbDocumentRequest struct {
	SourceType string         `json:"source_type,omitempty"`
	SourceName string         `json:"source_name,omitempty"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type kbDocumentResponse struct {
	ID         string         `json:"id"`
	SourceType string         `json:"source_type"`
	SourceName string         `json:"source_name"`
	Version    int            `json:"version"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type kbSearchResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	SearchType string  `json:"search_type"`
}

type agentResponse struct {
	ID                string  `json:"id"`
	Role              string  `json:"role"`
	Name              string  `json:"name"`
	Status            string  `json:"status"`
	TotalQueries      int     `json:"total_queries"`
	Successful        int     `json:"successful"`
	Failed            int     `json:"failed"`
	AverageLatencyMS  float64 `json:"average_latency_ms"`
}

type taskResponse struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	AssignedTo   string         `json:"assigned_to"`
	CreatedBy    string         `json:"created_by"`
	Priority     int            `json:"priority"`
	Status       string         `json:"status"`
	Progress     float64        `json:"progress"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
}
