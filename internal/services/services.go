package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/btimofeyev/tutor-ai-core/internal/batch"
	"github.com/btimofeyev/tutor-ai-core/internal/config"
	"github.com/btimofeyev/tutor-ai-core/internal/llm"
	"github.com/btimofeyev/tutor-ai-core/internal/pipeline"
	"github.com/btimofeyev/tutor-ai-core/internal/repository"
	"github.com/btimofeyev/tutor-ai-core/internal/repository/postgres"
	"github.com/btimofeyev/tutor-ai-core/internal/session"
)

// Services holds all service instances
type Services struct {
	Sessions  *session.Store
	Pipeline  *pipeline.Pipeline
	Retention *pipeline.RetentionSweeper

	Messages      repository.MessageRepository
	Summaries     repository.SummaryRepository
	Notifications repository.NotificationRepository
	Learners      repository.LearnerRepository
}

// messageRecorder adapts the message repository to the session store's
// durable mirror hook
type messageRecorder struct {
	messages repository.MessageRepository
}

func (r *messageRecorder) Record(ctx context.Context, learnerID string, msg session.Message) error {
	var metadata []byte
	if len(msg.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode message metadata: %w", err)
		}
	}
	return r.messages.Append(ctx, repository.RawMessage{
		ID:        msg.ID,
		LearnerID: learnerID,
		Role:      msg.Role,
		Content:   msg.Content,
		Metadata:  metadata,
		CreatedAt: msg.Timestamp,
	})
}

// NewServices creates all service instances
func NewServices(cfg *config.Config, db *sqlx.DB, client llm.Client, logger *logrus.Logger) *Services {
	if logger == nil {
		logger = logrus.New()
	}

	messages := postgres.NewMessageRepository(db)
	summaries := postgres.NewSummaryRepository(db)
	notifications := postgres.NewNotificationRepository(db)
	learners := postgres.NewLearnerRepository(db)

	store := session.NewStore(
		time.Duration(cfg.Session.TTLHours)*time.Hour,
		cfg.Session.MaxMessages,
		logger,
	)
	store.SetRecorder(&messageRecorder{messages: messages})

	orchestrator := batch.NewOrchestrator(
		cfg.Batch.Size,
		time.Duration(cfg.Batch.DelaySeconds)*time.Second,
		logger,
	)

	summarizer := pipeline.NewSummarizer(
		client,
		summaries,
		messages,
		time.Duration(cfg.Session.GapHours)*time.Hour,
		cfg.Summary.MinMessages,
		logger,
	)

	digests := pipeline.NewDigestGenerator(
		client,
		summaries,
		notifications,
		learners,
		orchestrator,
		cfg.Digest.MinTotalMessages,
		cfg.Digest.MinConversations,
		time.Duration(cfg.Digest.NotificationTTLDays)*24*time.Hour,
		logger,
	)

	retention := pipeline.NewRetentionSweeper(
		summaries,
		notifications,
		time.Duration(cfg.Summary.RetentionDays)*24*time.Hour,
		logger,
	)

	return &Services{
		Sessions:      store,
		Pipeline:      pipeline.New(summarizer, digests, retention, messages, orchestrator, logger),
		Retention:     retention,
		Messages:      messages,
		Summaries:     summaries,
		Notifications: notifications,
		Learners:      learners,
	}
}
