// Package pipeline distills ended tutoring conversations into durable
// summaries and parent-facing daily digests, and reclaims storage on a
// retention schedule.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/btimofeyev/tutor-ai-core/internal/batch"
	"github.com/btimofeyev/tutor-ai-core/internal/repository"
)

// CleanupResult reports one cleanup run: a summarization sweep over every
// learner with pending messages, followed by retention purges.
type CleanupResult struct {
	SummariesWritten    int           `json:"summaries_written"`
	SummariesPurged     int64         `json:"summaries_purged"`
	NotificationsPurged int64         `json:"notifications_purged"`
	Report              *batch.Report `json:"report"`
}

// Pipeline is the facade the scheduler and CLI invoke. It owns nothing
// long-lived itself; every run pulls its population fresh from storage.
type Pipeline struct {
	summarizer   *Summarizer
	digests      *DigestGenerator
	retention    *RetentionSweeper
	messages     repository.MessageRepository
	orchestrator *batch.Orchestrator
	logger       *logrus.Logger
}

// New assembles the pipeline facade
func New(
	summarizer *Summarizer,
	digests *DigestGenerator,
	retention *RetentionSweeper,
	messages repository.MessageRepository,
	orchestrator *batch.Orchestrator,
	logger *logrus.Logger,
) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}

	return &Pipeline{
		summarizer:   summarizer,
		digests:      digests,
		retention:    retention,
		messages:     messages,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// RunBatchCleanup summarizes every learner's ended conversations in
// bounded-concurrency batches, then purges expired summaries and
// notifications. Per-learner failures are recorded in the report; only
// population selection or purge failures surface as errors.
func (p *Pipeline) RunBatchCleanup(ctx context.Context) (*CleanupResult, error) {
	learnerIDs, err := p.messages.LearnerIDsWithMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to select learners with pending messages: %w", err)
	}

	result := &CleanupResult{}

	var written atomicCounter
	result.Report = p.orchestrator.Run(ctx, learnerIDs, func(ctx context.Context, learnerID string) error {
		n, err := p.summarizer.SummarizeLearner(ctx, learnerID)
		written.n.Add(int64(n))
		return err
	})
	result.SummariesWritten = written.value()

	if result.SummariesPurged, err = p.retention.PurgeExpiredSummaries(ctx, ""); err != nil {
		return result, err
	}
	if result.NotificationsPurged, err = p.retention.PurgeExpiredNotifications(ctx); err != nil {
		return result, err
	}

	p.logger.WithFields(logrus.Fields{
		"learners":             result.Report.Processed,
		"summaries_written":    result.SummariesWritten,
		"summaries_purged":     result.SummariesPurged,
		"notifications_purged": result.NotificationsPurged,
		"failed":               result.Report.Failed,
		"duration":             result.Report.Duration.String(),
	}).Info("Batch cleanup finished")

	return result, nil
}

// GenerateDailySummaries runs the daily digest for the given date,
// defaulting to yesterday when the zero time is passed.
func (p *Pipeline) GenerateDailySummaries(ctx context.Context, date time.Time) (*DigestResult, error) {
	if date.IsZero() {
		date = time.Now().AddDate(0, 0, -1)
	}

	return p.digests.GenerateForDate(ctx, date)
}
