package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Kamar-Folarin/cpython-stats/internal/config"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

// Processor handles batch processing of items
type Processor[T any] struct {
	config     *config.BatchConfig
	key        func(T) string
	statusChan chan models.BatchProgress
	mu         sync.Mutex
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewProcessor creates a new batch processor. key names an item in the
// progress reports and may be nil.
func NewProcessor[T any](cfg *config.BatchConfig, key func(T) string) *Processor[T] {
	return &Processor[T]{
		config:     cfg,
		key:        key,
		statusChan: make(chan models.BatchProgress, 1),
		sleep:      sleepContext,
	}
}

// ProcessItems splits items into batches and hands them to processFn,
// running up to Workers batches at once. A failing batch is retried
// MaxRetries times before the whole run fails.
func (p *Processor[T]) ProcessItems(ctx context.Context, items []T, processFn func(ctx context.Context, batch []T) error) (models.BatchProgress, error) {
	totalItems := len(items)
	if totalItems == 0 {
		return models.BatchProgress{}, nil
	}

	batchSize := p.config.Size
	if batchSize <= 0 {
		batchSize = 100
	}
	workers := p.config.Workers
	if workers <= 0 {
		workers = 1
	}

	totalBatches := (totalItems + batchSize - 1) / batchSize
	progress := models.BatchProgress{
		TotalBatches:   totalBatches,
		TotalItems:     totalItems,
		StartTime:      time.Now(),
		LastUpdateTime: time.Now(),
	}
	p.updateProgress(progress)

	workerChan := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var processErr error
	var mu sync.Mutex

	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return processErr != nil
	}

dispatch:
	for i := 0; i < totalBatches && !failed(); i++ {
		select {
		case <-ctx.Done():
			mu.Lock()
			if processErr == nil {
				processErr = ctx.Err()
			}
			progress.Errors = append(progress.Errors, ctx.Err().Error())
			mu.Unlock()
			break dispatch
		case workerChan <- struct{}{}:
			wg.Add(1)
			go func(batchNum int) {
				defer wg.Done()
				defer func() { <-workerChan }()

				start := batchNum * batchSize
				end := min(start+batchSize, totalItems)
				batch := items[start:end]

				err := p.processBatchWithRetry(ctx, batch, processFn)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if processErr == nil {
						processErr = err
					}
					progress.Errors = append(progress.Errors, err.Error())
					return
				}

				progress.ProcessedBatches++
				progress.ProcessedItems += len(batch)
				progress.LastUpdateTime = time.Now()
				if p.key != nil {
					progress.LastProcessedKey = p.key(batch[len(batch)-1])
				}
				p.updateProgress(progress)
			}(i)
		}
	}

	wg.Wait()

	p.updateProgress(progress)
	return progress, processErr
}

// GetProgress returns the current progress channel
func (p *Processor[T]) GetProgress() <-chan models.BatchProgress {
	return p.statusChan
}

func (p *Processor[T]) processBatchWithRetry(ctx context.Context, batch []T, processFn func(ctx context.Context, batch []T) error) error {
	var lastErr error
	for retry := 0; retry <= p.config.MaxRetries; retry++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := processFn(ctx, batch)
		if err == nil {
			return nil
		}
		lastErr = err

		if retry < p.config.MaxRetries {
			backoff := time.Duration(float64(p.config.BatchDelay) * float64(retry+1))
			if err := p.sleep(ctx, backoff); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("failed to process batch after %d retries: %w", p.config.MaxRetries, lastErr)
}

// updateProgress replaces the pending progress report with a copy of progress
func (p *Processor[T]) updateProgress(progress models.BatchProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	progress.Errors = append([]string(nil), progress.Errors...)
	select {
	case p.statusChan <- progress:
	default:
		<-p.statusChan
		p.statusChan <- progress
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	return nil
}
