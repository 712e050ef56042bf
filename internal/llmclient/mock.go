package llmclient

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock is a test double for Backend: configurable fixed response, error, and
// artificial delay (used to exercise the Request Coordinator's timeout
// handling without a real provider).
type Mock struct {
	mu       sync.Mutex
	Response string
	Err      error
	Delay    time.Duration
	Calls    []Request
}

// NewMock constructs a Mock that echoes a role-tagged response by default.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Generate(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	delay := m.Delay
	resp := m.Response
	err := m.Err
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if resp != "" {
		return resp, nil
	}
	return fmt.Sprintf("[%s] response to: %s", req.Role, req.UserPrompt), nil
}
