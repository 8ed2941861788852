package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/warthog618/shadowd/internal/metrics"
)

// Pool is a small fixed-size worker pool that takes shadow-upsert and
// metric-upsert writes off the processor's message-receive loop, so one slow
// bbolt transaction never stalls MQTT ingestion. Modeled on the
// teacher's Poller: a buffered job channel plus a done channel, except
// here N goroutines drain the same channel instead of one goroutine
// waiting on a ticker.
type Pool struct {
	jobs chan func()
	done chan struct{}
	wg   sync.WaitGroup
	log  *zap.Logger
}

// NewPool starts workers goroutines, each pulling from a queue of depth
// queueSize. A queueSize of 0 or less defaults to 64.
func NewPool(workers, queueSize int, log *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	p := &Pool{
		jobs: make(chan func(), queueSize),
		done: make(chan struct{}),
		log:  log,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			metrics.PoolQueueDepth.Dec()
			job()
		case <-p.done:
			return
		}
	}
}

// Submit enqueues job for background execution. If the queue is full,
// Submit drops the job immediately rather than blocking the caller,
// incrementing PoolJobsRejectedTotal under kind so a saturated pool
// shows up in metrics instead of as unexplained ingestion latency.
func (p *Pool) Submit(kind string, job func()) {
	select {
	case p.jobs <- job:
		metrics.PoolQueueDepth.Inc()
	default:
		metrics.PoolJobsRejectedTotal.WithLabelValues(kind).Inc()
		if p.log != nil {
			p.log.Warn("storage pool queue full, dropping job", zap.String("kind", kind))
		}
	}
}

// Close stops the workers and waits for in-flight jobs to finish.
// Queued-but-not-started jobs are abandoned. Submit is not guarded
// against a closed pool: a job submitted after Close is queued (or
// dropped if the queue is full) and never runs.
func (p *Pool) Close() {
	close(p.done)
	p.wg.Wait()
}
