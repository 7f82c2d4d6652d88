package auth

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// HashPool runs CPU bound password work off the caller's goroutine with
// bounded parallelism, so a burst of logins cannot starve other requests.
//
// A caller whose context is cancelled returns immediately. The job it
// submitted runs to completion in the background and frees its slot.
type HashPool struct {
	sem    *semaphore.Weighted
	size   int
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewHashPool creates a pool with size workers, GOMAXPROCS when size <= 0
func NewHashPool(size int) *HashPool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &HashPool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Size returns the number of workers
func (p *HashPool) Size() int {
	return p.size
}

type hashResult struct {
	value string
	ok    bool
	err   error
}

// do runs fn on a worker and waits for it or for ctx
func (p *HashPool) do(ctx context.Context, fn func() hashResult) (hashResult, error) {
	if err := ctx.Err(); err != nil {
		return hashResult{}, err
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return hashResult{}, ErrHashPoolClosed
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.wg.Done()
		return hashResult{}, err
	}

	out := make(chan hashResult, 1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		out <- fn()
	}()

	select {
	case res := <-out:
		return res, nil
	case <-ctx.Done():
		return hashResult{}, ctx.Err()
	}
}

// Close rejects new work and waits for in-flight jobs
func (p *HashPool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}
