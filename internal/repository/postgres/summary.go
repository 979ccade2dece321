package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/btimofeyev/tutor-ai-core/internal/repository"
)

// SummaryRepository implements repository.SummaryRepository using PostgreSQL
type SummaryRepository struct {
	db *sqlx.DB
}

// NewSummaryRepository creates a new PostgreSQL summary repository
func NewSummaryRepository(db *sqlx.DB) repository.SummaryRepository {
	return &SummaryRepository{db: db}
}

// Insert stores a conversation summary
func (r *SummaryRepository) Insert(ctx context.Context, summary repository.ConversationSummary) error {
	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO conversation_summaries
			(id, learner_id, summary_text, message_count, period_start, period_end, created_at)
		VALUES
			(:id, :learner_id, :summary_text, :message_count, :period_start, :period_end, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, summary)
	return err
}

// ListByLearnerOnDate retrieves a learner's summaries whose period started
// on the given calendar day
func (r *SummaryRepository) ListByLearnerOnDate(ctx context.Context, learnerID string, day time.Time) ([]repository.ConversationSummary, error) {
	start, end := dayBounds(day)

	var summaries []repository.ConversationSummary
	query := `
		SELECT id, learner_id, summary_text, message_count, period_start, period_end, created_at
		FROM conversation_summaries
		WHERE learner_id = $1 AND period_start >= $2 AND period_start < $3
		ORDER BY period_start ASC
	`

	if err := r.db.SelectContext(ctx, &summaries, query, learnerID, start, end); err != nil {
		return nil, err
	}

	return summaries, nil
}

// LearnerIDsWithSummariesOn lists learners that have at least one summary
// whose period started on the given calendar day
func (r *SummaryRepository) LearnerIDsWithSummariesOn(ctx context.Context, day time.Time) ([]string, error) {
	start, end := dayBounds(day)

	var ids []string
	query := `
		SELECT DISTINCT learner_id
		FROM conversation_summaries
		WHERE period_start >= $1 AND period_start < $2
		ORDER BY learner_id
	`

	if err := r.db.SelectContext(ctx, &ids, query, start, end); err != nil {
		return nil, err
	}

	return ids, nil
}

// DeleteOlderThan removes summaries created before the cutoff. An empty
// learnerID purges across all learners.
func (r *SummaryRepository) DeleteOlderThan(ctx context.Context, learnerID string, cutoff time.Time) (int64, error) {
	var (
		result interface {
			RowsAffected() (int64, error)
		}
		err error
	)

	if learnerID == "" {
		result, err = r.db.ExecContext(ctx,
			`DELETE FROM conversation_summaries WHERE created_at < $1`, cutoff)
	} else {
		result, err = r.db.ExecContext(ctx,
			`DELETE FROM conversation_summaries WHERE learner_id = $1 AND created_at < $2`, learnerID, cutoff)
	}
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}
