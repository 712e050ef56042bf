package coordinator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"execteam/internal/agentregistry"
	"execteam/internal/bus"
	"execteam/internal/delegation"
	"execteam/internal/llmclient"
	"execteam/internal/tasks"
)

func newTestCoordinator(t *testing.T, llm llmclient.Backend, timeout time.Duration) (*Coordinator, *agentregistry.Registry) {
	t.Helper()
	registry := agentregistry.NewDefaultRegistry(10)
	taskMgr := tasks.NewManager()
	b := bus.New(100, nil)
	engine := delegation.NewEngine(registry, taskMgr, b, nil, 0.4, 3)
	pool := NewWorkerPool(2, timeout, registry)
	t.Cleanup(pool.Close)
	c := New(engine, nil, registry, llm, pool, 0)
	return c, registry
}

func waitForTerminal(t *testing.T, c *Coordinator, messageID string) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := c.Poll(messageID)
		require.NoError(t, err)
		if snap.Status != StatusGenerating {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for terminal status")
	return Snapshot{}
}

func TestSubmitRoutesToCFOAndCompletes(t *testing.T) {
	mock := llmclient.NewMock()
	mock.Response = "Q3 cash burn looks on track."
	c, registry := newTestCoordinator(t, mock, time.Second)

	messageID, err := c.Submit(context.Background(), SubmitInput{MessageText: "What is the projected cash burn for Q3?"})
	require.NoError(t, err)
	require.NotEmpty(t, messageID)

	snap := waitForTerminal(t, c, messageID)
	require.Equal(t, StatusComplete, snap.Status)
	require.Equal(t, agentregistry.RoleCFO, snap.TargetRole)
	require.NotNil(t, snap.ResponseText)
	require.Equal(t, "Q3 cash burn looks on track.", *snap.ResponseText)

	cfo, err := registry.ByRole(agentregistry.RoleCFO)
	require.NoError(t, err)
	require.Equal(t, cfo.ID, snap.AssignedAgentID)

	require.Len(t, mock.Calls, 1)
	require.Equal(t, string(agentregistry.RoleCFO), mock.Calls[0].Role)
}

func TestSubmitTimesOutWhenBackendExceedsDeadline(t *testing.T) {
	mock := llmclient.NewMock()
	mock.Delay = 200 * time.Millisecond
	c, _ := newTestCoordinator(t, mock, 20*time.Millisecond)

	messageID, err := c.Submit(context.Background(), SubmitInput{MessageText: "budget review needed"})
	require.NoError(t, err)

	snap := waitForTerminal(t, c, messageID)
	require.Equal(t, StatusError, snap.Status)
	require.NotNil(t, snap.Error)
	require.True(t, strings.Contains(*snap.Error, "timeout"))

	// Poll again: terminal state must be stable (idempotent).
	again, err := c.Poll(messageID)
	require.NoError(t, err)
	require.Equal(t, snap.Status, again.Status)
	require.Equal(t, snap.Error, again.Error)
}

func TestCancelBeforeCompletionWinsFirstTerminalWrite(t *testing.T) {
	mock := llmclient.NewMock()
	mock.Delay = 100 * time.Millisecond
	mock.Response = "too late"
	c, _ := newTestCoordinator(t, mock, time.Second)

	messageID, err := c.Submit(context.Background(), SubmitInput{MessageText: "budget review needed"})
	require.NoError(t, err)

	require.NoError(t, c.Cancel(messageID))

	snap := waitForTerminal(t, c, messageID)
	require.Equal(t, StatusError, snap.Status)
	require.NotNil(t, snap.Error)
	require.Equal(t, "cancelled", *snap.Error)

	// The late backend completion must not overwrite the cancellation.
	time.Sleep(150 * time.Millisecond)
	again, err := c.Poll(messageID)
	require.NoError(t, err)
	require.Equal(t, StatusError, again.Status)
	require.Equal(t, "cancelled", *again.Error)
}

func TestCancelAfterCompletionIsNoop(t *testing.T) {
	mock := llmclient.NewMock()
	mock.Response = "done"
	c, _ := newTestCoordinator(t, mock, time.Second)

	messageID, err := c.Submit(context.Background(), SubmitInput{MessageText: "budget review needed"})
	require.NoError(t, err)

	snap := waitForTerminal(t, c, messageID)
	require.Equal(t, StatusComplete, snap.Status)

	require.NoError(t, c.Cancel(messageID))

	again, err := c.Poll(messageID)
	require.NoError(t, err)
	require.Equal(t, StatusComplete, again.Status)
	require.Equal(t, snap.ResponseText, again.ResponseText)
}

func TestPollUnknownMessageIDReturnsNotFound(t *testing.T) {
	mock := llmclient.NewMock()
	c, _ := newTestCoordinator(t, mock, time.Second)

	_, err := c.Poll("does-not-exist")
	require.Error(t, err)
}
