package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btimofeyev/tutor-ai-core/internal/repository"
	"github.com/btimofeyev/tutor-ai-core/internal/session"
)

type captureMessageRepo struct {
	appended []repository.RawMessage
}

func (r *captureMessageRepo) Append(ctx context.Context, msg repository.RawMessage) error {
	r.appended = append(r.appended, msg)
	return nil
}

func (r *captureMessageRepo) ListByLearner(ctx context.Context, learnerID string) ([]repository.RawMessage, error) {
	return r.appended, nil
}

func (r *captureMessageRepo) DeleteByIDs(ctx context.Context, learnerID string, ids []string) (int64, error) {
	return 0, nil
}

func (r *captureMessageRepo) LearnerIDsWithMessages(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (r *captureMessageRepo) CountByLearner(ctx context.Context, learnerID string) (int, error) {
	return len(r.appended), nil
}

func TestMessageRecorder_PreservesMetadata(t *testing.T) {
	repo := &captureMessageRepo{}
	recorder := &messageRecorder{messages: repo}

	ts := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	err := recorder.Record(context.Background(), "learner-1", session.Message{
		ID:        "msg-1",
		Role:      "user",
		Content:   "Can you explain photosynthesis?",
		Metadata:  map[string]string{"subject": "science", "grade": "5"},
		Timestamp: ts,
	})
	require.NoError(t, err)

	require.Len(t, repo.appended, 1)
	got := repo.appended[0]
	assert.Equal(t, "msg-1", got.ID)
	assert.Equal(t, "learner-1", got.LearnerID)
	assert.Equal(t, ts, got.CreatedAt)

	var metadata map[string]string
	require.NoError(t, json.Unmarshal(got.Metadata, &metadata))
	assert.Equal(t, map[string]string{"subject": "science", "grade": "5"}, metadata)
}

func TestMessageRecorder_NoMetadata(t *testing.T) {
	repo := &captureMessageRepo{}
	recorder := &messageRecorder{messages: repo}

	err := recorder.Record(context.Background(), "learner-1", session.Message{
		ID:      "msg-1",
		Role:    "user",
		Content: "hi",
	})
	require.NoError(t, err)

	require.Len(t, repo.appended, 1)
	assert.Empty(t, repo.appended[0].Metadata)
}
