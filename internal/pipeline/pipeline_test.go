package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btimofeyev/tutor-ai-core/internal/batch"
	"github.com/btimofeyev/tutor-ai-core/internal/repository"
)

func TestPipeline_RunBatchCleanup(t *testing.T) {
	now := time.Now()
	base := now.Add(-48 * time.Hour)

	messages := newFakeMessageRepo()
	seedMessages(messages, "learner-1", base,
		0, 5*time.Minute, 10*time.Minute, 15*time.Minute, 20*time.Minute)
	seedMessages(messages, "learner-2", base, 0, 5*time.Minute) // too small

	summaries := &fakeSummaryRepo{summaries: []repository.ConversationSummary{
		{ID: "ancient", LearnerID: "learner-1", CreatedAt: now.AddDate(0, 0, -120)},
	}}

	notifications := newFakeNotificationRepo()
	notifications.byKey["expired"] = repository.ParentNotification{
		ID: "n-old", GuardianID: "g1", LearnerID: "learner-1", ExpiresAt: now.Add(-time.Hour),
	}

	client := &fakeLLM{response: "Covered fractions."}
	orch := batch.NewOrchestrator(5, 0, nil)
	summarizer := NewSummarizer(client, summaries, messages, 4*time.Hour, 5, nil)
	retention := NewRetentionSweeper(summaries, notifications, 90*24*time.Hour, nil)
	digests := NewDigestGenerator(client, summaries, notifications, &fakeLearnerRepo{}, orch, 6, 2, 7*24*time.Hour, nil)

	p := New(summarizer, digests, retention, messages, orch, nil)

	result, err := p.RunBatchCleanup(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Report.Processed)
	assert.Equal(t, 0, result.Report.Failed)
	assert.Equal(t, 1, result.SummariesWritten)
	assert.Equal(t, int64(1), result.SummariesPurged)
	assert.Equal(t, int64(1), result.NotificationsPurged)

	remaining, _ := messages.CountByLearner(context.Background(), "learner-2")
	assert.Equal(t, 2, remaining, "small conversations stay in raw storage")
}

func TestPipeline_GenerateDailySummariesDefaultsToYesterday(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1)
	day := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 10, 0, 0, 0, time.UTC)

	summaries := &fakeSummaryRepo{}
	seedSummaries(summaries, "learner-1", day, 5, 5)
	notifications := newFakeNotificationRepo()
	learners := &fakeLearnerRepo{guardians: map[string]string{"learner-1": "guardian-1"}}

	client := &fakeLLM{response: digestJSON}
	orch := batch.NewOrchestrator(5, 0, nil)
	messages := newFakeMessageRepo()
	summarizer := NewSummarizer(client, summaries, messages, 4*time.Hour, 5, nil)
	retention := NewRetentionSweeper(summaries, notifications, 90*24*time.Hour, nil)
	digests := NewDigestGenerator(client, summaries, notifications, learners, orch, 6, 2, 7*24*time.Hour, nil)

	p := New(summarizer, digests, retention, messages, orch, nil)

	result, err := p.GenerateDailySummaries(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.DigestsGenerated)

	stored, _ := notifications.ListByGuardian(context.Background(), "guardian-1", 10)
	require.Len(t, stored, 1)
}
