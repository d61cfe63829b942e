package doe

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hailam/gamesearch/internal/game"
)

// workResult is one completed scorer invocation, fed back to the driver.
type workResult struct {
	key   uint64
	score int
}

// Pool is the bounded worker pool: a semaphore caps concurrent scorer
// invocations at poolSize, and an errgroup collects the first scorer
// failure so the driver can abort training. Submission never blocks
// past the semaphore; workers communicate results purely by channel,
// never by touching the driver's Game or Store.
type Pool struct {
	scorer  Scorer
	sem     *semaphore.Weighted
	results chan workResult
	group   *errgroup.Group
	ctx     context.Context
}

// NewPool creates a pool of size poolSize running scorer.
func NewPool(ctx context.Context, poolSize int, scorer Scorer) *Pool {
	if poolSize < 1 {
		poolSize = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	return &Pool{
		scorer:  scorer,
		sem:     semaphore.NewWeighted(int64(poolSize)),
		results: make(chan workResult, poolSize*4),
		group:   g,
		ctx:     gctx,
	}
}

// Submit enqueues one node for evaluation. It blocks only until a worker
// slot is free (or ctx/pool is cancelled by a prior failure).
func (p *Pool) Submit(key uint64, moves []game.Move) error {
	if err := p.sem.Acquire(p.ctx, 1); err != nil {
		return fmt.Errorf("doe: submit %d: %w", key, err)
	}

	path := append([]game.Move(nil), moves...)
	p.group.Go(func() (err error) {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: scorer panicked: %v", game.ErrIOFailure, r)
			}
		}()
		score := p.scorer(path)
		select {
		case p.results <- workResult{key: key, score: score}:
		case <-p.ctx.Done():
			return p.ctx.Err()
		}
		return nil
	})
	return nil
}

// Results returns the channel completed evaluations arrive on.
func (p *Pool) Results() <-chan workResult { return p.results }

// Shutdown drains submitted tasks: waits for every
// in-flight scorer to finish, returning the first error if any failed.
func (p *Pool) Shutdown() error {
	err := p.group.Wait()
	close(p.results)
	if err != nil {
		return fmt.Errorf("doe: pool shutdown: %w", err)
	}
	return nil
}
