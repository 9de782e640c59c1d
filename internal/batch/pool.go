package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ttscraper/pkg/logger"
	"ttscraper/pkg/ratelimit"
)

// Job is one account to crawl
type Job struct {
	Index    int
	Username string
}

// Result is the outcome of one job. Err is per-job and never aborts the batch.
type Result[T any] struct {
	Job      Job
	Value    T
	Err      error
	Duration time.Duration
}

// Success reports whether the job completed without error
func (r Result[T]) Success() bool {
	return r.Err == nil
}

// RunFunc processes a single job
type RunFunc[T any] func(ctx context.Context, job Job) (T, error)

// Pool runs jobs concurrently with a fixed worker limit
type Pool[T any] struct {
	workers int
	run     RunFunc[T]
	limiter ratelimit.Limiter
	logger  logger.Logger
}

// NewPool creates a pool. A nil limiter starts jobs as fast as workers free up.
func NewPool[T any](workers int, run RunFunc[T], limiter ratelimit.Limiter, log logger.Logger) *Pool[T] {
	if workers < 1 {
		workers = 1
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pool[T]{workers: workers, run: run, limiter: limiter, logger: log}
}

// Workers returns the concurrency limit
func (p *Pool[T]) Workers() int {
	return p.workers
}

// Run processes every username and returns results in input order.
// The error is non-nil only when ctx ended before all jobs ran.
func (p *Pool[T]) Run(ctx context.Context, usernames []string) ([]Result[T], error) {
	results := make([]Result[T], len(usernames))
	var mu sync.Mutex

	err := p.RunWithCallback(ctx, usernames, func(r Result[T]) {
		mu.Lock()
		results[r.Job.Index] = r
		mu.Unlock()
	})
	return results, err
}

// RunWithCallback processes every username and hands each result to cb as
// soon as it is ready. cb is called from worker goroutines.
func (p *Pool[T]) RunWithCallback(ctx context.Context, usernames []string, cb func(Result[T])) error {
	p.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": p.workers,
		"jobs":        len(usernames),
	})
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, username := range usernames {
		job := Job{Index: i, Username: username}
		g.Go(func() error {
			if err := p.limiter.Wait(gctx); err != nil {
				return err
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			cb(p.process(gctx, job))
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		err = fmt.Errorf("batch interrupted: %w", err)
	}

	p.logger.InfoWithFields("Worker pool finished", map[string]interface{}{
		"jobs":     len(usernames),
		"duration": time.Since(start).String(),
	})
	return err
}

func (p *Pool[T]) process(ctx context.Context, job Job) Result[T] {
	start := time.Now()
	log := p.logger.WithField("username", job.Username)
	log.Debug("Worker processing job")

	value, err := p.run(ctx, job)
	result := Result[T]{Job: job, Value: value, Err: err, Duration: time.Since(start)}

	if err != nil {
		log.ErrorWithFields("Job failed", map[string]interface{}{
			"error":    err.Error(),
			"duration": result.Duration.String(),
		})
		return result
	}

	log.DebugWithFields("Job completed", map[string]interface{}{
		"duration": result.Duration.String(),
	})
	return result
}
