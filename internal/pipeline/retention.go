package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/btimofeyev/tutor-ai-core/internal/metrics"
	"github.com/btimofeyev/tutor-ai-core/internal/repository"
)

// RetentionSweeper deletes summaries and notifications past their
// retention window. Delete-only: safe to call repeatedly and concurrently
// with digest generation.
type RetentionSweeper struct {
	summaries        repository.SummaryRepository
	notifications    repository.NotificationRepository
	summaryRetention time.Duration
	logger           *logrus.Logger
	now              func() time.Time
}

// NewRetentionSweeper creates a sweeper. summaryRetention is the single
// authoritative summary window; notifications carry their own expiry.
func NewRetentionSweeper(
	summaries repository.SummaryRepository,
	notifications repository.NotificationRepository,
	summaryRetention time.Duration,
	logger *logrus.Logger,
) *RetentionSweeper {
	if logger == nil {
		logger = logrus.New()
	}

	return &RetentionSweeper{
		summaries:        summaries,
		notifications:    notifications,
		summaryRetention: summaryRetention,
		logger:           logger,
		now:              time.Now,
	}
}

// PurgeExpiredSummaries deletes summaries created before the retention
// cutoff. An empty learnerID purges across all learners.
func (r *RetentionSweeper) PurgeExpiredSummaries(ctx context.Context, learnerID string) (int64, error) {
	cutoff := r.now().Add(-r.summaryRetention)

	count, err := r.summaries.DeleteOlderThan(ctx, learnerID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge summaries: %w", err)
	}

	if count > 0 {
		metrics.Default().SummariesPurged.Add(float64(count))
		r.logger.WithField("purged", count).Info("Expired summaries purged")
	}

	return count, nil
}

// PurgeExpiredNotifications deletes notifications whose expiry has passed
func (r *RetentionSweeper) PurgeExpiredNotifications(ctx context.Context) (int64, error) {
	count, err := r.notifications.DeleteExpired(ctx, r.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}

	if count > 0 {
		metrics.Default().NotificationsPurged.Add(float64(count))
		r.logger.WithField("purged", count).Info("Expired notifications purged")
	}

	return count, nil
}
