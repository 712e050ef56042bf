package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"execteam/internal/agentregistry"
	"execteam/internal/corelog"
	"execteam/internal/coreerr"
)

// Job is one unit of work consumed by the WorkerPool: Run performs the
// (bounded, deadline-respecting) LLM call and its result is written to
// Request's terminal state. AgentID and StartedAt identify the assignee and
// enqueue time so a genuine terminal write can update the agent's metrics
// and conversation memory.
type Job struct {
	Request   *PendingRequest
	Run       func(ctx context.Context) (string, error)
	AgentID   string
	StartedAt time.Time
}

// WorkerPool is a bounded pool of N workers consuming jobs from a FIFO
// queue (spec.md §4.5 "Worker pool"), grounded on the bounded-channel
// consumer loop of internal/orchestrator/kafka.go's StartKafkaConsumer,
// generalized from a Kafka reader to an in-process job channel.
type WorkerPool struct {
	jobs     chan Job
	wg       sync.WaitGroup
	timeout  time.Duration
	registry *agentregistry.Registry
}

// NewWorkerPool starts workerCount goroutines, each enforcing timeout on
// every job it runs. registry may be nil (terminal writes then skip metrics
// and memory updates).
func NewWorkerPool(workerCount int, timeout time.Duration, registry *agentregistry.Registry) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	capacity := workerCount * 4
	if capacity < 64 {
		capacity = 64
	}
	p := &WorkerPool{jobs: make(chan Job, capacity), timeout: timeout, registry: registry}
	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.run()
	}
	return p
}

// isTransient reports whether err is retryable per spec.md §7: an LLM
// backend timeout or a tagged Transient error. Anything else fails fast.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return coreerr.Is(err, coreerr.KindTransient)
}

func (p *WorkerPool) run() {
	defer p.wg.Done()
	log := corelog.FromContext(context.Background())
	for job := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)

		operation := func() (string, error) {
			resp, err := job.Run(ctx)
			if err != nil && !isTransient(err) {
				return "", backoff.Permanent(err)
			}
			return resp, err
		}
		resp, err := backoff.Retry(ctx, operation, backoff.WithMaxTries(3), backoff.WithBackOff(backoff.NewExponentialBackOff()))
		cancel()

		var wrote bool
		if err != nil {
			msg := err.Error()
			if errors.Is(err, context.DeadlineExceeded) {
				msg = "timeout: " + msg
			}
			wrote = job.Request.writeTerminal(StatusError, nil, &msg)
			log.Error().Err(err).Str("message_id", job.Request.MessageID).Msg("coordinator: job failed")
		} else {
			wrote = job.Request.writeTerminal(StatusComplete, &resp, nil)
		}

		if wrote {
			p.recordOutcome(job, err == nil, resp)
		}
	}
}

// recordOutcome updates the assignee's metrics (spec.md §3) and, on
// success, appends its response to the assignee's conversation memory ring
// (spec.md §9). Only called when this job's own outcome won the race to
// write the Pending Request's terminal state.
func (p *WorkerPool) recordOutcome(job Job, success bool, resp string) {
	if p.registry == nil || job.AgentID == "" {
		return
	}
	agent, err := p.registry.ByID(job.AgentID)
	if err != nil {
		return
	}
	agent.RecordQuery(success, time.Since(job.StartedAt))
	if success {
		agent.Remember(string(job.Request.TargetRole), resp, nil)
	}
}

// Submit enqueues job. Blocks if the queue is full (backpressure).
func (p *WorkerPool) Submit(job Job) {
	p.jobs <- job
}

// Close stops accepting new jobs and waits for in-flight jobs to finish.
func (p *WorkerPool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
