package worker

import (
	"context"
	"sync"
)

// Job is one unit of work run by a Pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a Job produces
type Result interface {
	GetError() error
}

type task struct {
	slot int
	job  Job
}

// Pool runs jobs on a fixed number of goroutines and keeps their results in
// submission order. A job that never ran leaves its slot nil.
type Pool struct {
	size   int
	tasks  chan task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	slots []Result
}

// NewPool creates a pool with size workers
func NewPool(size int) *Pool {
	return NewPoolContext(context.Background(), size)
}

// NewPoolContext creates a pool whose jobs are cancelled with parent.
// A non-positive size means one worker.
func NewPoolContext(parent context.Context, size int) *Pool {
	if size <= 0 {
		size = 1
	}

	ctx, cancel := context.WithCancel(parent)
	return &Pool{
		size:   size,
		tasks:  make(chan task, size*2),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return p.size
}

// Start launches the workers
func (p *Pool) Start() {
	p.wg.Add(p.size)
	for i := 0; i < p.size; i++ {
		go p.run()
	}
}

func (p *Pool) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			if p.ctx.Err() != nil {
				return
			}
			r := t.job.Execute(p.ctx)

			p.mu.Lock()
			p.slots[t.slot] = r
			p.mu.Unlock()
		}
	}
}

// Submit queues job and returns the index of its slot in the slice returned
// by Wait. Once the pool is cancelled the job is dropped and its slot stays
// nil. Submit must not be called after Wait.
func (p *Pool) Submit(job Job) int {
	p.mu.Lock()
	slot := len(p.slots)
	p.slots = append(p.slots, nil)
	p.mu.Unlock()

	if p.ctx.Err() != nil {
		return slot
	}
	select {
	case <-p.ctx.Done():
	case p.tasks <- task{slot: slot, job: job}:
	}
	return slot
}

// Wait closes the queue, lets the workers drain it and returns one slot per
// submitted job. It must be called once, after Start.
func (p *Pool) Wait() []Result {
	close(p.tasks)
	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots
}

// Shutdown cancels running jobs and stops the workers without draining the queue
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
