package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/btimofeyev/tutor-ai-core/internal/repository"
)

// MessageRepository implements repository.MessageRepository using PostgreSQL
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new PostgreSQL message repository
func NewMessageRepository(db *sqlx.DB) repository.MessageRepository {
	return &MessageRepository{db: db}
}

// Append stores a raw chat message for later summarization
func (r *MessageRepository) Append(ctx context.Context, msg repository.RawMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if len(msg.Metadata) == 0 {
		msg.Metadata = []byte("{}")
	}

	query := `
		INSERT INTO chat_messages (id, learner_id, role, content, metadata, created_at)
		VALUES (:id, :learner_id, :role, :content, :metadata, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, msg)
	return err
}

// ListByLearner retrieves all pending messages for a learner in time order
func (r *MessageRepository) ListByLearner(ctx context.Context, learnerID string) ([]repository.RawMessage, error) {
	var messages []repository.RawMessage
	query := `
		SELECT id, learner_id, role, content, metadata, created_at
		FROM chat_messages
		WHERE learner_id = $1
		ORDER BY created_at ASC
	`

	if err := r.db.SelectContext(ctx, &messages, query, learnerID); err != nil {
		return nil, err
	}

	return messages, nil
}

// DeleteByIDs removes the given messages for a learner. Called only after
// the covering summary row has been written.
func (r *MessageRepository) DeleteByIDs(ctx context.Context, learnerID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM chat_messages WHERE learner_id = $1 AND id = ANY($2)`
	result, err := r.db.ExecContext(ctx, query, learnerID, pq.Array(ids))
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// LearnerIDsWithMessages lists learners that have messages waiting to be
// summarized
func (r *MessageRepository) LearnerIDsWithMessages(ctx context.Context) ([]string, error) {
	var ids []string
	query := `SELECT DISTINCT learner_id FROM chat_messages ORDER BY learner_id`

	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, err
	}

	return ids, nil
}

// CountByLearner returns the number of pending messages for a learner
func (r *MessageRepository) CountByLearner(ctx context.Context, learnerID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM chat_messages WHERE learner_id = $1`

	if err := r.db.GetContext(ctx, &count, query, learnerID); err != nil {
		return 0, err
	}

	return count, nil
}
