package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"execteam/internal/agentregistry"
)

func newPendingRequest(id string) *PendingRequest {
	return &PendingRequest{
		MessageID: id, Status: StatusGenerating, CreatedAt: time.Now(),
		TargetRole: agentregistry.RoleDirector,
	}
}

func TestWorkerPoolRunsJobsConcurrentlyUpToWorkerCount(t *testing.T) {
	pool := NewWorkerPool(3, time.Second, nil)
	defer pool.Close()

	var inFlight, maxInFlight int32
	var mu sync.Mutex
	observe := func() {
		mu.Lock()
		defer mu.Unlock()
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		req := newPendingRequest(string(rune('a' + i)))
		wg.Add(1)
		pool.Submit(Job{Request: req, Run: func(ctx context.Context) (string, error) {
			atomic.AddInt32(&inFlight, 1)
			observe()
			time.Sleep(30 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			wg.Done()
			return "ok", nil
		}})
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.LessOrEqual(t, maxInFlight, int32(3))
	require.Greater(t, maxInFlight, int32(0))
}

func TestWorkerPoolWritesTerminalStateOnSuccess(t *testing.T) {
	pool := NewWorkerPool(1, time.Second, nil)
	defer pool.Close()

	req := newPendingRequest("m1")
	done := make(chan struct{})
	pool.Submit(Job{Request: req, Run: func(ctx context.Context) (string, error) {
		defer close(done)
		return "all good", nil
	}})
	<-done
	time.Sleep(10 * time.Millisecond)

	snap := req.Snapshot()
	require.Equal(t, StatusComplete, snap.Status)
	require.NotNil(t, snap.ResponseText)
	require.Equal(t, "all good", *snap.ResponseText)
	require.NotNil(t, snap.CompletedAt)
}

func TestWorkerPoolClassifiesDeadlineExceededAsTimeout(t *testing.T) {
	pool := NewWorkerPool(1, 10*time.Millisecond, nil)
	defer pool.Close()

	req := newPendingRequest("m2")
	done := make(chan struct{})
	pool.Submit(Job{Request: req, Run: func(ctx context.Context) (string, error) {
		defer close(done)
		<-ctx.Done()
		return "", ctx.Err()
	}})
	<-done
	time.Sleep(10 * time.Millisecond)

	snap := req.Snapshot()
	require.Equal(t, StatusError, snap.Status)
	require.NotNil(t, snap.Error)
	require.Contains(t, *snap.Error, "timeout")
}

func TestWorkerPoolWritesTerminalStateOnError(t *testing.T) {
	pool := NewWorkerPool(1, time.Second, nil)
	defer pool.Close()

	req := newPendingRequest("m3")
	done := make(chan struct{})
	pool.Submit(Job{Request: req, Run: func(ctx context.Context) (string, error) {
		defer close(done)
		return "", assertErr{}
	}})
	<-done
	time.Sleep(10 * time.Millisecond)

	snap := req.Snapshot()
	require.Equal(t, StatusError, snap.Status)
	require.NotNil(t, snap.Error)
	require.Equal(t, "boom", *snap.Error)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
