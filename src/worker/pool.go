package worker

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
)

// Job is one pipeline run. It executes on a worker goroutine, never on the UI loop.
type Job func(ctx context.Context)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
// At most size jobs run at once; one more may wait; anything beyond is refused.
type Pool struct {
	jobs chan queued
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type queued struct {
	ctx context.Context
	fn  Job
}

// New creates a worker pool. Size defaults to 1 when size<=0.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{jobs: make(chan queued, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for j := range p.jobs {
				run(id, j)
			}
		}(i)
	}
}

func run(id int, j queued) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker %d: job panicked: %v\n%s", id, r, debug.Stack())
		}
	}()
	if err := j.ctx.Err(); err != nil {
		log.Printf("Worker %d: skipping job, context done: %v", id, err)
		return
	}
	j.fn(j.ctx)
}

// Submit enqueues a job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, fn Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- queued{ctx: ctx, fn: fn}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work. Safe to call twice.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
