package workers

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var ErrQueueFull = errors.New("worker queue is full")
var ErrClosed = errors.New("worker pool is closed")

// Pool runs submitted jobs on a fixed number of goroutines with a
// bounded buffer. Suitable for a single-instance deployment; a
// message broker would replace it for multi-instance setups.
type Pool struct {
	jobs    chan func()
	workers int
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	log     zerolog.Logger
}

func NewPool(workers, buffer int, log zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		jobs:    make(chan func(), buffer),
		workers: workers,
		log:     log,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.run(job)
			}
		}()
	}
	p.log.Info().Int("workers", p.workers).Msg("worker pool started")
}

// Submit enqueues a job without blocking. Callers treat ErrQueueFull as
// back-pressure; the webhook sender redelivers.
func (p *Pool) Submit(job func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop drains the queue and waits for in-flight jobs.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("job panicked")
		}
	}()
	job()
}
