package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pool runs a batch of independent jobs on a fixed number of goroutines.
// Each job writes into its own result slot, so output order always matches
// input order regardless of completion order.
type Pool struct {
	logger      *slog.Logger
	concurrency int
	name        string
}

// PoolConfig holds configuration for a pool.
type PoolConfig struct {
	Name        string
	Logger      *slog.Logger
	Concurrency int // Number of jobs in flight at once
}

// NewPool creates a new pool. Concurrency below 1 runs jobs sequentially.
func NewPool(cfg PoolConfig) *Pool {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	name := cfg.Name
	if name == "" {
		name = "worker"
	}

	return &Pool{
		logger:      logger.With("pool", name),
		concurrency: concurrency,
		name:        name,
	}
}

// Concurrency returns the number of worker goroutines.
func (p *Pool) Concurrency() int {
	return p.concurrency
}

// Run calls fn once for every index in [0, n). Run returns after every
// started job has finished. When ctx is cancelled, jobs that have not
// started are skipped and Run returns ctx.Err().
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	if n == 0 {
		return nil
	}

	workers := p.concurrency
	if workers > n {
		workers = n
	}

	startTime := time.Now()
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.processLoop(ctx, workerID, jobs, fn)
		}(w)
	}

	var err error
dispatch:
	for i := 0; i < n; i++ {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	p.logger.Debug("pool run finished",
		"jobs", n,
		"workers", workers,
		"duration", time.Since(startTime),
	)
	return err
}

// processLoop pulls job indices until the channel closes.
func (p *Pool) processLoop(ctx context.Context, workerID int, jobs <-chan int, fn func(context.Context, int)) {
	for i := range jobs {
		p.runJob(ctx, workerID, i, fn)
	}
}

// runJob isolates a single job so a panic in one does not take down the batch.
func (p *Pool) runJob(ctx context.Context, workerID, i int, fn func(context.Context, int)) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked",
				"worker_id", workerID,
				"job", i,
				"panic", r,
			)
		}
	}()
	fn(ctx, i)
}

// Map applies fn to every item on the pool and returns the results in input
// order. Items skipped because ctx was cancelled get the value from skipped.
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, item T) R, skipped func(item T) R) []R {
	results := make([]R, len(items))
	done := make([]bool, len(items))

	_ = p.Run(ctx, len(items), func(ctx context.Context, i int) {
		results[i] = fn(ctx, items[i])
		done[i] = true
	})

	for i, ok := range done {
		if !ok && skipped != nil {
			results[i] = skipped(items[i])
		}
	}
	return results
}
