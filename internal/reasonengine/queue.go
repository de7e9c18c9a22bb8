package reasonengine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kisuya/reasoncard/internal/domain"
)

// QueueDepthGauge is the one metrics method Queue depends on, so this
// package never imports prometheus directly.
type QueueDepthGauge interface {
	Set(v float64)
}

// Queue is the bounded work queue from spec.md §5 ("the Reason Engine's
// fetch fan-out is bounded; when the queue is full, new work blocks
// rather than spawning unbounded goroutines"), grounded on
// sawpanic-cryptorun's worker-pool pattern in internal/workers (bounded
// channel + fixed goroutine pool draining it).
type Queue struct {
	engine *Engine
	jobs   chan func(ctx context.Context)
	wg     sync.WaitGroup
	log    zerolog.Logger
	depth  QueueDepthGauge
}

// NewQueue starts workerCount goroutines draining a channel buffered to
// capacity. Call Close to drain and stop.
func NewQueue(engine *Engine, workerCount, capacity int, log zerolog.Logger) *Queue {
	q := &Queue{
		engine: engine,
		jobs:   make(chan func(ctx context.Context), capacity),
		log:    log.With().Str("component", "reason_engine_queue").Logger(),
	}
	for i := 0; i < workerCount; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// SetDepthGauge wires a Prometheus gauge (internal/metrics.Registry.QueueDepth)
// that mirrors the queue's current backlog after every enqueue/dequeue.
func (q *Queue) SetDepthGauge(g QueueDepthGauge) {
	q.depth = g
}

func (q *Queue) observeDepth() {
	if q.depth != nil {
		q.depth.Set(float64(len(q.jobs)))
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for fn := range q.jobs {
		q.observeDepth()
		fn(context.Background())
	}
}

// SubmitEvent enqueues ev for the fetch/score/persist pipeline. It
// blocks once the queue is full, applying backpressure to the caller
// (the detector's scan loop) instead of growing memory unboundedly.
func (q *Queue) SubmitEvent(ctx context.Context, ev domain.PriceEvent) {
	job := func(ctx context.Context) {
		if _, _, err := q.engine.ProcessEvent(ctx, ev); err != nil {
			q.log.Error().Err(err).Str("event_id", ev.ID).Msg("process event failed")
		}
	}
	select {
	case q.jobs <- job:
		q.observeDepth()
	case <-ctx.Done():
	}
}

// SubmitRerun enqueues a rerun triggered by a resolved ReasonReport,
// stamping the resulting ReasonRevision to changedAt (spec.md §4.4).
func (q *Queue) SubmitRerun(ctx context.Context, report domain.ReasonReport, changedAt time.Time) {
	job := func(ctx context.Context) {
		if _, err := q.engine.Rerun(ctx, report, changedAt); err != nil {
			q.log.Error().Err(err).Str("report_id", report.ID).Msg("rerun failed")
		}
	}
	select {
	case q.jobs <- job:
		q.observeDepth()
	case <-ctx.Done():
	}
}

// Close stops accepting work and waits for queued jobs to drain.
func (q *Queue) Close() {
	close(q.jobs)
	q.wg.Wait()
}
