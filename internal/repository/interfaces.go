package repository

import (
	"context"
	"time"
)

// RawMessage is a durably stored chat turn awaiting summarization.
type RawMessage struct {
	ID        string    `db:"id"`
	LearnerID string    `db:"learner_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	Metadata  []byte    `db:"metadata"`
	CreatedAt time.Time `db:"created_at"`
}

// ConversationSummary is the durable distillation of one conversation
// session. Raw messages are deleted only after the summary row exists.
type ConversationSummary struct {
	ID           string    `db:"id"`
	LearnerID    string    `db:"learner_id"`
	SummaryText  string    `db:"summary_text"`
	MessageCount int       `db:"message_count"`
	PeriodStart  time.Time `db:"period_start"`
	PeriodEnd    time.Time `db:"period_end"`
	CreatedAt    time.Time `db:"created_at"`
}

// ParentNotification is a daily parent-facing digest, unique per
// (guardian, learner, conversation date).
type ParentNotification struct {
	ID               string    `db:"id"`
	GuardianID       string    `db:"guardian_id"`
	LearnerID        string    `db:"learner_id"`
	ConversationDate time.Time `db:"conversation_date"`
	SummaryData      []byte    `db:"summary_data"`
	Status           string    `db:"status"`
	CreatedAt        time.Time `db:"created_at"`
	ExpiresAt        time.Time `db:"expires_at"`
}

// Learner is the minimal learner record this core needs; the full CRUD
// surface around learners lives elsewhere.
type Learner struct {
	ID         string `db:"id"`
	GuardianID string `db:"guardian_id"`
	Name       string `db:"name"`
}

// MessageRepository defines raw chat message storage operations
type MessageRepository interface {
	Append(ctx context.Context, msg RawMessage) error
	ListByLearner(ctx context.Context, learnerID string) ([]RawMessage, error)
	DeleteByIDs(ctx context.Context, learnerID string, ids []string) (int64, error)
	LearnerIDsWithMessages(ctx context.Context) ([]string, error)
	CountByLearner(ctx context.Context, learnerID string) (int, error)
}

// SummaryRepository defines conversation summary storage operations
type SummaryRepository interface {
	Insert(ctx context.Context, summary ConversationSummary) error
	ListByLearnerOnDate(ctx context.Context, learnerID string, day time.Time) ([]ConversationSummary, error)
	LearnerIDsWithSummariesOn(ctx context.Context, day time.Time) ([]string, error)
	DeleteOlderThan(ctx context.Context, learnerID string, cutoff time.Time) (int64, error)
}

// NotificationRepository defines parent notification storage operations
type NotificationRepository interface {
	Upsert(ctx context.Context, n ParentNotification) error
	ListByGuardian(ctx context.Context, guardianID string, limit int) ([]ParentNotification, error)
	MarkRead(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// LearnerRepository defines learner lookup operations
type LearnerRepository interface {
	Get(ctx context.Context, id string) (*Learner, error)
	ListIDs(ctx context.Context) ([]string, error)
}
