// Package batch coordinates one conversion run: it drives every enumerated
// item through the admission gate and the runner, collects exactly one
// outcome per item, and resolves the batch report once all items are done.
package batch

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Slynchy/webp-conv/internal/domain"
	"github.com/Slynchy/webp-conv/internal/gate"
)

// ItemRunner converts a single item. Satisfied by runner.Runner.
type ItemRunner interface {
	Run(ctx context.Context, item domain.WorkItem) domain.Outcome
}

// Observer receives progress callbacks during a batch. Callbacks may arrive
// from multiple goroutines but never concurrently with each other.
type Observer interface {
	OnBatchStart(total int)
	OnItemDone(done, total int, o domain.Outcome)
	OnBatchDone(report *domain.BatchReport)
}

// NoopObserver ignores all callbacks.
type NoopObserver struct{}

func (NoopObserver) OnBatchStart(int)                    {}
func (NoopObserver) OnItemDone(int, int, domain.Outcome) {}
func (NoopObserver) OnBatchDone(*domain.BatchReport)     {}

// Coordinator runs one batch at a time. All per-batch state lives in the
// report returned by Run; the Coordinator itself holds only configuration and
// can be reused for subsequent batches.
type Coordinator struct {
	Gate         *gate.Gate
	Runner       ItemRunner
	SkipExisting bool
	Observer     Observer
	Debug        bool
}

// Run converts all items and returns the resolved report. It returns only
// after every item has exactly one outcome; individual failures never abort
// the rest of the batch. A cancelled context finalizes still-waiting items as
// aborted instead of leaving them without an outcome.
func (c *Coordinator) Run(ctx context.Context, inputDir, outputDir string, items []domain.WorkItem, dryRun bool) *domain.BatchReport {
	report := &domain.BatchReport{
		ID:        uuid.NewString(),
		InputDir:  inputDir,
		OutputDir: outputDir,
		DryRun:    dryRun,
		StartedAt: time.Now(),
		Outcomes:  make([]domain.Outcome, 0, len(items)),
	}

	obs := c.Observer
	if obs == nil {
		obs = NoopObserver{}
	}
	obs.OnBatchStart(len(items))

	var (
		mu   sync.Mutex
		done int
		wg   sync.WaitGroup
	)
	// mu also serializes OnItemDone, keeping the Observer contract.
	record := func(o domain.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		report.Outcomes = append(report.Outcomes, o)
		done++
		obs.OnItemDone(done, len(items), o)
	}

	for _, item := range items {
		wg.Add(1)
		go func(item domain.WorkItem) {
			defer wg.Done()
			record(c.runOne(ctx, item, dryRun))
		}(item)
	}
	wg.Wait()

	report.FinishedAt = time.Now()
	report.Finalize()
	if c.Debug {
		log.Printf("[batch] %s resolved: %d items, %d failed", report.ID, report.Total(), report.Failed)
	}
	obs.OnBatchDone(report)
	return report
}

func (c *Coordinator) runOne(ctx context.Context, item domain.WorkItem, dryRun bool) domain.Outcome {
	if c.SkipExisting && !dryRun {
		if _, err := os.Stat(item.DestPath); err == nil {
			if c.Debug {
				log.Printf("[batch] skipping %s, destination exists", item.Name)
			}
			return domain.Outcome{Item: item, Status: domain.StatusSkipped}
		}
	}

	if err := c.Gate.Acquire(ctx); err != nil {
		return domain.Outcome{
			Item:    item,
			Status:  domain.StatusFailed,
			Failure: domain.FailureAborted,
			Detail:  err.Error(),
		}
	}
	// The runner returns at finalization, which may be before the converter
	// process has exited. Releasing here is what frees the slot early.
	defer c.Gate.Release()

	return c.Runner.Run(ctx, item)
}
