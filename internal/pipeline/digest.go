package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/btimofeyev/tutor-ai-core/internal/batch"
	"github.com/btimofeyev/tutor-ai-core/internal/llm"
	"github.com/btimofeyev/tutor-ai-core/internal/metrics"
	"github.com/btimofeyev/tutor-ai-core/internal/repository"
)

const digestSystemPrompt = `You turn tutoring conversation summaries into a daily digest for a parent.
Respond with a single JSON object, no surrounding prose, shaped exactly as:
{"highlights": ["..."], "subjects": ["..."], "progress": "...", "suggestions": ["..."]}`

// Digest is the structured parent-facing record stored on a notification
type Digest struct {
	Highlights  []string `json:"highlights"`
	Subjects    []string `json:"subjects"`
	Progress    string   `json:"progress"`
	Suggestions []string `json:"suggestions"`

	SessionCount int    `json:"session_count"`
	MessageCount int    `json:"message_count"`
	Engagement   string `json:"engagement"`
	Generated    string `json:"generated"` // "ai" or "fallback"
}

// DigestResult reports one daily digest run
type DigestResult struct {
	Date             time.Time     `json:"date"`
	TotalLearners    int           `json:"total_learners"`
	DigestsGenerated int           `json:"digests_generated"`
	Skipped          int           `json:"skipped"`
	Report           *batch.Report `json:"report"`
}

// DigestGenerator aggregates a day's summaries per learner into one
// parent notification, idempotent per (guardian, learner, date).
type DigestGenerator struct {
	client        llm.Client
	summaries     repository.SummaryRepository
	notifications repository.NotificationRepository
	learners      repository.LearnerRepository
	orchestrator  *batch.Orchestrator

	minTotalMessages int
	minConversations int
	notificationTTL  time.Duration

	logger *logrus.Logger
}

// NewDigestGenerator creates a digest generator
func NewDigestGenerator(
	client llm.Client,
	summaries repository.SummaryRepository,
	notifications repository.NotificationRepository,
	learners repository.LearnerRepository,
	orchestrator *batch.Orchestrator,
	minTotalMessages, minConversations int,
	notificationTTL time.Duration,
	logger *logrus.Logger,
) *DigestGenerator {
	if logger == nil {
		logger = logrus.New()
	}

	return &DigestGenerator{
		client:           client,
		summaries:        summaries,
		notifications:    notifications,
		learners:         learners,
		orchestrator:     orchestrator,
		minTotalMessages: minTotalMessages,
		minConversations: minConversations,
		notificationTTL:  notificationTTL,
		logger:           logger,
	}
}

// GenerateForDate builds digests for every learner active on the given
// date. One learner failing never stops the rest; failures are counted in
// the result's report rather than returned.
func (g *DigestGenerator) GenerateForDate(ctx context.Context, date time.Time) (*DigestResult, error) {
	learnerIDs, err := g.summaries.LearnerIDsWithSummariesOn(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to select active learners: %w", err)
	}

	result := &DigestResult{Date: date, TotalLearners: len(learnerIDs)}
	if len(learnerIDs) == 0 {
		result.Report = &batch.Report{}
		return result, nil
	}

	var generated, skipped atomicCounter

	result.Report = g.orchestrator.Run(ctx, learnerIDs, func(ctx context.Context, learnerID string) error {
		ok, err := g.generateForLearner(ctx, learnerID, date)
		if err != nil {
			return err
		}
		if ok {
			generated.inc()
		} else {
			skipped.inc()
		}
		return nil
	})

	result.DigestsGenerated = generated.value()
	result.Skipped = skipped.value()

	g.logger.WithFields(logrus.Fields{
		"date":      date.Format("2006-01-02"),
		"learners":  result.TotalLearners,
		"generated": result.DigestsGenerated,
		"failed":    result.Report.Failed,
	}).Info("Daily digest run finished")

	return result, nil
}

// generateForLearner reports whether a digest was stored; false with nil
// error means the learner's day was below the activity thresholds.
func (g *DigestGenerator) generateForLearner(ctx context.Context, learnerID string, date time.Time) (bool, error) {
	summaries, err := g.summaries.ListByLearnerOnDate(ctx, learnerID, date)
	if err != nil {
		return false, fmt.Errorf("failed to load summaries: %w", err)
	}

	totalMessages := 0
	for _, s := range summaries {
		totalMessages += s.MessageCount
	}
	if len(summaries) < g.minConversations || totalMessages < g.minTotalMessages {
		return false, nil
	}

	learner, err := g.learners.Get(ctx, learnerID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve guardian: %w", err)
	}

	digest := g.buildDigest(ctx, summaries, totalMessages)

	data, err := json.Marshal(digest)
	if err != nil {
		return false, fmt.Errorf("failed to encode digest: %w", err)
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	notification := repository.ParentNotification{
		ID:               uuid.New().String(),
		GuardianID:       learner.GuardianID,
		LearnerID:        learnerID,
		ConversationDate: day,
		SummaryData:      data,
		Status:           "unread",
		CreatedAt:        time.Now(),
		ExpiresAt:        time.Now().Add(g.notificationTTL),
	}

	if err := g.notifications.Upsert(ctx, notification); err != nil {
		return false, fmt.Errorf("failed to store notification: %w", err)
	}

	metrics.Default().DigestsGenerated.Inc()
	return true, nil
}

// buildDigest asks the completion service for a structured digest and
// falls back to a deterministic one when the reply cannot be parsed.
func (g *DigestGenerator) buildDigest(ctx context.Context, summaries []repository.ConversationSummary, totalMessages int) Digest {
	var b strings.Builder
	for i, s := range summaries {
		fmt.Fprintf(&b, "Conversation %d (%d messages): %s\n\n", i+1, s.MessageCount, s.SummaryText)
	}

	engagement := EngagementLevel(totalMessages, len(summaries))

	text, err := g.client.Complete(ctx, digestSystemPrompt, b.String())
	if err == nil {
		var digest Digest
		if jsonErr := json.Unmarshal([]byte(stripWrappers(text)), &digest); jsonErr == nil && len(digest.Highlights) > 0 {
			digest.SessionCount = len(summaries)
			digest.MessageCount = totalMessages
			digest.Engagement = engagement
			digest.Generated = "ai"
			return digest
		}
		err = fmt.Errorf("unparseable digest payload")
	}

	g.logger.WithError(err).Warn("Digest completion failed, using deterministic digest")
	metrics.Default().DigestFallbacks.Inc()

	return fallbackDigest(summaries, totalMessages, engagement)
}

// fallbackDigest synthesizes a structurally valid digest from counts and
// the summary texts themselves.
func fallbackDigest(summaries []repository.ConversationSummary, totalMessages int, engagement string) Digest {
	highlights := make([]string, 0, len(summaries))
	for _, s := range summaries {
		highlights = append(highlights, firstSentence(s.SummaryText))
	}

	return Digest{
		Highlights: highlights,
		Subjects:   []string{},
		Progress: fmt.Sprintf("Completed %d tutoring conversations with %d messages.",
			len(summaries), totalMessages),
		Suggestions:  []string{"Ask your child what they worked on today."},
		SessionCount: len(summaries),
		MessageCount: totalMessages,
		Engagement:   engagement,
		Generated:    "fallback",
	}
}

// stripWrappers removes markdown code fences and surrounding prose the
// completion service sometimes wraps around JSON payloads.
func stripWrappers(s string) string {
	s = strings.TrimSpace(s)

	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}

	// Trim any leading/trailing prose around the outermost object
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}

	return strings.TrimSpace(s)
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexAny(s, ".!?"); idx >= 0 {
		return s[:idx+1]
	}
	return s
}

// atomicCounter is a tiny mutex-free counter safe for worker goroutines
type atomicCounter struct {
	n atomic.Int64
}

func (c *atomicCounter) inc()       { c.n.Add(1) }
func (c *atomicCounter) value() int { return int(c.n.Load()) }
