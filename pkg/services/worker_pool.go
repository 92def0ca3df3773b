package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WorkerPoolConfig configures table-level parallelism.
type WorkerPoolConfig struct {
	MaxConcurrent int // Maximum tables analyzed at once (default: 4)
}

// DefaultWorkerPoolConfig returns sensible defaults.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		MaxConcurrent: 4,
	}
}

// WorkerPool runs independent work items with bounded parallelism. A slot is
// released as soon as an item finishes so the next item starts immediately.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *zap.Logger
}

// NewWorkerPool creates a worker pool. If logger is nil, a no-op logger is used.
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultWorkerPoolConfig().MaxConcurrent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		config: config,
		logger: logger.Named("worker-pool"),
	}
}

// MaxConcurrent returns the effective parallelism bound.
func (p *WorkerPool) MaxConcurrent() int {
	return p.config.MaxConcurrent
}

// WorkItem represents a unit of work to be processed.
type WorkItem[T any] struct {
	ID      string                               // For logging/tracking
	Execute func(ctx context.Context) (T, error) // The work to be executed
}

// WorkResult represents the result of a work item.
type WorkResult[T any] struct {
	ID      string
	Result  T
	Err     error
	Elapsed time.Duration
}

// Process executes all work items with bounded parallelism.
// Results arrive in completion order, not submission order, and one failing
// item never stops the others. Once ctx is done no further item starts; items
// that never ran report ctx.Err().
func Process[T any](
	ctx context.Context,
	pool *WorkerPool,
	items []WorkItem[T],
	onProgress func(completed, total int),
) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	results := make([]WorkResult[T], 0, len(items))
	resultsChan := make(chan WorkResult[T], len(items))
	sem := make(chan struct{}, pool.config.MaxConcurrent)

	var wg sync.WaitGroup

	for _, item := range items {
		wg.Add(1)
		go func(item WorkItem[T]) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				resultsChan <- WorkResult[T]{ID: item.ID, Err: ctx.Err()}
				return
			}

			// select picks randomly when both cases are ready.
			if err := ctx.Err(); err != nil {
				resultsChan <- WorkResult[T]{ID: item.ID, Err: err}
				return
			}

			start := time.Now()
			result, err := item.Execute(ctx)
			resultsChan <- WorkResult[T]{
				ID:      item.ID,
				Result:  result,
				Err:     err,
				Elapsed: time.Since(start),
			}
		}(item)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	completed := 0
	for result := range resultsChan {
		results = append(results, result)
		completed++
		if result.Err != nil {
			pool.logger.Debug("Work item failed",
				zap.String("id", result.ID),
				zap.Error(result.Err))
		}
		if onProgress != nil {
			onProgress(completed, len(items))
		}
	}

	return results
}
