// Package batch drives pipeline operations across the learner population
// in bounded-concurrency batches, isolating per-learner failures.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/btimofeyev/tutor-ai-core/internal/metrics"
)

// ItemError records one failed item without aborting the run
type ItemError struct {
	ItemID  string `json:"item_id"`
	Message string `json:"message"`
}

// Report is the outcome of one batch run
type Report struct {
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Errors    []ItemError   `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Worker processes a single item
type Worker func(ctx context.Context, itemID string) error

// Orchestrator fans work out over fixed-size batches with a pause between
// them to bound load on storage and the completion service.
type Orchestrator struct {
	batchSize int
	delay     time.Duration
	logger    *logrus.Logger
}

// NewOrchestrator creates an orchestrator with the given batch size and
// inter-batch delay
func NewOrchestrator(batchSize int, delay time.Duration, logger *logrus.Logger) *Orchestrator {
	if batchSize <= 0 {
		batchSize = 5
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Orchestrator{
		batchSize: batchSize,
		delay:     delay,
		logger:    logger,
	}
}

// Run processes items in batches of batchSize; items within a batch run
// concurrently, so at most batchSize workers are in flight at any moment.
// A worker error or panic is caught at the item boundary and recorded;
// the batch and the run continue.
func (o *Orchestrator) Run(ctx context.Context, items []string, worker Worker) *Report {
	start := time.Now()
	report := &Report{}

	var mu sync.Mutex

	for offset := 0; offset < len(items); offset += o.batchSize {
		end := offset + o.batchSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[offset:end]

		var wg sync.WaitGroup
		for _, itemID := range chunk {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()

				err := o.runItem(ctx, id, worker)

				mu.Lock()
				defer mu.Unlock()
				report.Processed++
				if err != nil {
					report.Failed++
					report.Errors = append(report.Errors, ItemError{ItemID: id, Message: err.Error()})
					metrics.Default().BatchItemFailures.Inc()
					o.logger.WithError(err).WithField("item", id).Warn("Batch item failed")
				} else {
					report.Succeeded++
				}
			}(itemID)
		}
		wg.Wait()

		if end < len(items) && o.delay > 0 {
			select {
			case <-ctx.Done():
				report.Duration = time.Since(start)
				return report
			case <-time.After(o.delay):
			}
		}
	}

	report.Duration = time.Since(start)
	return report
}

func (o *Orchestrator) runItem(ctx context.Context, id string, worker Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return worker(ctx, id)
}
