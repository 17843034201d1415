package workerpool

import (
	"context"
	"sync"
)

// Job is a unit of work executed by a Pool.
type Job func() error

// Pool executes jobs over a fixed number of goroutines. Jobs added after
// Stop (or after the construction context is cancelled) are dropped.
type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc

	jobs chan Job
	wg   sync.WaitGroup

	m   sync.Mutex
	err error
}

// New creates a Pool running at most n jobs concurrently.
func New(n int) *Pool {
	return NewWithCtx(context.Background(), n)
}

// NewWithCtx creates a Pool whose workers exit when ctx is cancelled.
func NewWithCtx(ctx context.Context, n int) *Pool {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan Job),
	}
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

// Add enqueues jobs without blocking the caller.
func (p *Pool) Add(jobs []Job) {
	p.wg.Add(len(jobs))
	go p.feed(jobs)
}

// AddBlocking enqueues jobs from the calling goroutine, blocking until all
// of them have been handed to a worker. Useful for very large job lists.
func (p *Pool) AddBlocking(jobs []Job) {
	p.wg.Add(len(jobs))
	p.feed(jobs)
}

// Wait blocks until every added job has completed or been dropped, and
// returns the first error any job returned.
func (p *Pool) Wait() error {
	p.wg.Wait()
	p.m.Lock()
	defer p.m.Unlock()
	return p.err
}

// Stop drops queued jobs and lets in-flight jobs finish. Safe to call
// multiple times.
func (p *Pool) Stop() {
	p.cancel()
}

func (p *Pool) feed(jobs []Job) {
	for i, job := range jobs {
		select {
		case p.jobs <- job:
		case <-p.ctx.Done():
			for range jobs[i:] {
				p.wg.Done()
			}
			return
		}
	}
}

func (p *Pool) worker() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobs:
			if err := job(); err != nil {
				p.setErr(err)
			}
			p.wg.Done()
		}
	}
}

func (p *Pool) setErr(err error) {
	p.m.Lock()
	defer p.m.Unlock()
	if p.err == nil {
		p.err = err
	}
}
