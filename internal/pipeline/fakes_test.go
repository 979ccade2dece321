package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btimofeyev/tutor-ai-core/internal/repository"
)

type fakeLLM struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Complete(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	return f.response, f.err
}

type fakeMessageRepo struct {
	mu        sync.Mutex
	byLearner map[string][]repository.RawMessage
	deleteErr error
	deletes   int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{byLearner: make(map[string][]repository.RawMessage)}
}

func (f *fakeMessageRepo) Append(_ context.Context, msg repository.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.byLearner[msg.LearnerID] = append(f.byLearner[msg.LearnerID], msg)
	return nil
}

func (f *fakeMessageRepo) ListByLearner(_ context.Context, learnerID string) ([]repository.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]repository.RawMessage, len(f.byLearner[learnerID]))
	copy(out, f.byLearner[learnerID])
	return out, nil
}

func (f *fakeMessageRepo) DeleteByIDs(_ context.Context, learnerID string, ids []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deletes++

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	var kept []repository.RawMessage
	var removed int64
	for _, msg := range f.byLearner[learnerID] {
		if drop[msg.ID] {
			removed++
			continue
		}
		kept = append(kept, msg)
	}
	f.byLearner[learnerID] = kept

	return removed, nil
}

func (f *fakeMessageRepo) LearnerIDsWithMessages(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	for id, msgs := range f.byLearner {
		if len(msgs) > 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeMessageRepo) CountByLearner(_ context.Context, learnerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.byLearner[learnerID]), nil
}

type fakeSummaryRepo struct {
	mu        sync.Mutex
	summaries []repository.ConversationSummary
	insertErr error
}

func (f *fakeSummaryRepo) Insert(_ context.Context, summary repository.ConversationSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertErr != nil {
		return f.insertErr
	}
	f.summaries = append(f.summaries, summary)
	return nil
}

func (f *fakeSummaryRepo) ListByLearnerOnDate(_ context.Context, learnerID string, day time.Time) ([]repository.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []repository.ConversationSummary
	for _, s := range f.summaries {
		if s.LearnerID == learnerID && sameDay(s.PeriodStart, day) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSummaryRepo) LearnerIDsWithSummariesOn(_ context.Context, day time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[string]bool)
	var ids []string
	for _, s := range f.summaries {
		if sameDay(s.PeriodStart, day) && !seen[s.LearnerID] {
			seen[s.LearnerID] = true
			ids = append(ids, s.LearnerID)
		}
	}
	return ids, nil
}

func (f *fakeSummaryRepo) DeleteOlderThan(_ context.Context, learnerID string, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var kept []repository.ConversationSummary
	var removed int64
	for _, s := range f.summaries {
		if s.CreatedAt.Before(cutoff) && (learnerID == "" || s.LearnerID == learnerID) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	f.summaries = kept

	return removed, nil
}

type fakeNotificationRepo struct {
	mu        sync.Mutex
	byKey     map[string]repository.ParentNotification
	upsertErr error
	upserts   int
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{byKey: make(map[string]repository.ParentNotification)}
}

func notificationKey(n repository.ParentNotification) string {
	return fmt.Sprintf("%s|%s|%s", n.GuardianID, n.LearnerID, n.ConversationDate.Format("2006-01-02"))
}

func (f *fakeNotificationRepo) Upsert(_ context.Context, n repository.ParentNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++

	key := notificationKey(n)
	if existing, ok := f.byKey[key]; ok {
		existing.SummaryData = n.SummaryData
		existing.Status = "unread"
		f.byKey[key] = existing
		return nil
	}
	f.byKey[key] = n
	return nil
}

func (f *fakeNotificationRepo) ListByGuardian(_ context.Context, guardianID string, _ int) ([]repository.ParentNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []repository.ParentNotification
	for _, n := range f.byKey {
		if n.GuardianID == guardianID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for key, n := range f.byKey {
		if n.ID == id {
			n.Status = "read"
			f.byKey[key] = n
		}
	}
	return nil
}

func (f *fakeNotificationRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var removed int64
	for key, n := range f.byKey {
		if n.ExpiresAt.Before(now) {
			delete(f.byKey, key)
			removed++
		}
	}
	return removed, nil
}

type fakeLearnerRepo struct {
	guardians map[string]string
}

func (f *fakeLearnerRepo) Get(_ context.Context, id string) (*repository.Learner, error) {
	guardian, ok := f.guardians[id]
	if !ok {
		return nil, fmt.Errorf("learner %s not found", id)
	}
	return &repository.Learner{ID: id, GuardianID: guardian}, nil
}

func (f *fakeLearnerRepo) ListIDs(_ context.Context) ([]string, error) {
	var ids []string
	for id := range f.guardians {
		ids = append(ids, id)
	}
	return ids, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
