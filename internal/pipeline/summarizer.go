package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/btimofeyev/tutor-ai-core/internal/llm"
	"github.com/btimofeyev/tutor-ai-core/internal/metrics"
	"github.com/btimofeyev/tutor-ai-core/internal/repository"
	"github.com/btimofeyev/tutor-ai-core/internal/session"
)

const summarySystemPrompt = `You are summarizing a tutoring conversation for the learner's parent.
Cover: topics worked on, struggles and breakthroughs, any assignments discussed,
and an overall progress signal. Write 3-5 plain sentences. No markdown.`

// Summarizer distills ended conversation groups into durable summaries.
// The completion service is best-effort; a deterministic fallback keeps
// the pipeline moving on any failure.
type Summarizer struct {
	client      llm.Client
	summaries   repository.SummaryRepository
	messages    repository.MessageRepository
	gap         time.Duration
	minMessages int
	logger      *logrus.Logger
	now         func() time.Time
}

// NewSummarizer creates a summarizer. minMessages is the smallest group
// worth distilling; smaller groups are left untouched in raw storage.
func NewSummarizer(
	client llm.Client,
	summaries repository.SummaryRepository,
	messages repository.MessageRepository,
	gap time.Duration,
	minMessages int,
	logger *logrus.Logger,
) *Summarizer {
	if logger == nil {
		logger = logrus.New()
	}

	return &Summarizer{
		client:      client,
		summaries:   summaries,
		messages:    messages,
		gap:         gap,
		minMessages: minMessages,
		logger:      logger,
		now:         time.Now,
	}
}

// SummarizeLearner groups the learner's pending messages by inactivity
// gap and distills each ended group large enough to summarize; a trailing
// group still inside the gap window is left for a later sweep. Raw
// messages are deleted only after their summary row is confirmed written;
// a failed insert leaves them fully intact for the next sweep.
func (s *Summarizer) SummarizeLearner(ctx context.Context, learnerID string) (int, error) {
	msgs, err := s.messages.ListByLearner(ctx, learnerID)
	if err != nil {
		return 0, fmt.Errorf("failed to list messages: %w", err)
	}

	groups := session.GroupIntoSessions(msgs, s.gap)

	now := s.now()
	written := 0
	for i, group := range groups {
		if len(group.Messages) < s.minMessages {
			continue
		}

		// The trailing group may still be a live conversation; it is
		// only known-ended once the inactivity gap has actually
		// elapsed. Distilling it early would split one conversation
		// across two summaries.
		if i == len(groups)-1 && now.Sub(group.EndTime) <= s.gap {
			continue
		}

		summary := s.buildSummary(ctx, learnerID, group)
		if err := s.summaries.Insert(ctx, summary); err != nil {
			return written, fmt.Errorf("failed to save summary: %w", err)
		}
		metrics.Default().SummariesGenerated.Inc()

		ids := make([]string, len(group.Messages))
		for i, msg := range group.Messages {
			ids[i] = msg.ID
		}
		if _, err := s.messages.DeleteByIDs(ctx, learnerID, ids); err != nil {
			// The summary exists, so the next sweep would double count
			// these messages. Surface it as an item failure.
			return written, fmt.Errorf("failed to delete summarized messages: %w", err)
		}

		written++
	}

	return written, nil
}

// buildSummary produces a summary for one group, falling back to a
// deterministic one on any completion failure. It never returns an error.
func (s *Summarizer) buildSummary(ctx context.Context, learnerID string, group session.Group) repository.ConversationSummary {
	text, err := s.client.Complete(ctx, summarySystemPrompt, buildTranscript(group))
	if err != nil || strings.TrimSpace(text) == "" {
		s.logger.WithError(err).WithField("learner", learnerID).
			Warn("Completion failed, using deterministic summary")
		metrics.Default().SummaryFallbacks.Inc()
		text = fallbackSummaryText(group)
	}

	return repository.ConversationSummary{
		ID:           uuid.New().String(),
		LearnerID:    learnerID,
		SummaryText:  strings.TrimSpace(text),
		MessageCount: len(group.Messages),
		PeriodStart:  group.StartTime,
		PeriodEnd:    group.EndTime,
		CreatedAt:    time.Now(),
	}
}

func buildTranscript(group session.Group) string {
	var b strings.Builder
	for _, msg := range group.Messages {
		role := "Student"
		if msg.Role == "assistant" {
			role = "Tutor"
		}
		fmt.Fprintf(&b, "%s: %s\n\n", role, msg.Content)
	}

	return b.String()
}
