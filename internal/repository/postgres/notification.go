package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/btimofeyev/tutor-ai-core/internal/repository"
)

// NotificationRepository implements repository.NotificationRepository using
// PostgreSQL
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new PostgreSQL notification repository
func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &NotificationRepository{db: db}
}

// Upsert inserts a notification or, when one already exists for the same
// (guardian, learner, conversation date), replaces its content in place.
// The original expiry is kept on update so regeneration does not extend
// the retention window.
func (r *NotificationRepository) Upsert(ctx context.Context, n repository.ParentNotification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.Status == "" {
		n.Status = "unread"
	}
	if len(n.SummaryData) == 0 {
		n.SummaryData = []byte("{}")
	}

	query := `
		INSERT INTO parent_notifications
			(id, guardian_id, learner_id, conversation_date, summary_data, status, created_at, expires_at)
		VALUES
			(:id, :guardian_id, :learner_id, :conversation_date, :summary_data, :status, :created_at, :expires_at)
		ON CONFLICT (guardian_id, learner_id, conversation_date)
		DO UPDATE SET summary_data = EXCLUDED.summary_data, status = 'unread'
	`

	_, err := r.db.NamedExecContext(ctx, query, n)
	return err
}

// ListByGuardian retrieves a guardian's notifications, newest first
func (r *NotificationRepository) ListByGuardian(ctx context.Context, guardianID string, limit int) ([]repository.ParentNotification, error) {
	if limit <= 0 {
		limit = 50
	}

	var notifications []repository.ParentNotification
	query := `
		SELECT id, guardian_id, learner_id, conversation_date, summary_data, status, created_at, expires_at
		FROM parent_notifications
		WHERE guardian_id = $1
		ORDER BY conversation_date DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &notifications, query, guardianID, limit); err != nil {
		return nil, err
	}

	return notifications, nil
}

// MarkRead flips a notification's status to read
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	query := `UPDATE parent_notifications SET status = 'read' WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// DeleteExpired removes notifications whose expiry has passed
func (r *NotificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM parent_notifications WHERE expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
