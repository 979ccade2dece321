package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/btimofeyev/tutor-ai-core/internal/metrics"
)

// Message is one chat turn held in an active session
type Message struct {
	ID        string
	Role      string
	Content   string
	Timestamp time.Time
	Metadata  map[string]string
}

// Session is the ephemeral per-learner conversation state. It lives only
// in the Store; losing the process loses it, which the summarization
// pipeline treats as "not yet summarized", never as corruption.
type Session struct {
	ID              string
	LearnerID       string
	Messages        []Message
	CreatedAt       time.Time
	LastActivityAt  time.Time
	ExpiresAt       time.Time
	ReadyForSummary bool
}

// Snapshot is the recent-context view handed to the chat path
type Snapshot struct {
	SessionID  string
	Messages   []Message
	HasHistory bool
}

// Recorder mirrors appended messages into durable storage. Failures are
// absorbed as non-blocking side effects; they never reject the append.
type Recorder interface {
	Record(ctx context.Context, learnerID string, msg Message) error
}

// Store is a process-local cache of active sessions, one per learner.
// Sessions expire on a fixed TTL from creation; they are not extended by
// activity, so a long-running conversation still rolls over once a day.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session // keyed by learner ID
	byID     map[string]string   // session ID -> learner ID

	ttl         time.Duration
	maxMessages int

	recorder Recorder
	logger   *logrus.Logger
	now      func() time.Time
}

// NewStore creates a session store with the given TTL and per-session
// message bound
func NewStore(ttl time.Duration, maxMessages int, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}

	return &Store{
		sessions:    make(map[string]*Session),
		byID:        make(map[string]string),
		ttl:         ttl,
		maxMessages: maxMessages,
		logger:      logger,
		now:         time.Now,
	}
}

// SetRecorder attaches a durable mirror for appended messages
func (s *Store) SetRecorder(r Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recorder = r
}

// GetOrCreate returns the learner's active session, creating a fresh one
// when none exists or the current one has expired
func (s *Store) GetOrCreate(learnerID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess, ok := s.sessions[learnerID]; ok && now.Before(sess.ExpiresAt) {
		return *sess
	}

	if old, ok := s.sessions[learnerID]; ok {
		delete(s.byID, old.ID)
	}

	sess := &Session{
		ID:             uuid.New().String(),
		LearnerID:      learnerID,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(s.ttl),
	}
	s.sessions[learnerID] = sess
	s.byID[sess.ID] = learnerID

	return *sess
}

// Append adds a message to a session. It reports false, with no side
// effect, when the session is gone or expired. The message list is
// trimmed to the most recent maxMessages; dropping the oldest entries is
// the store's memory bound, not data loss, since every append is also
// mirrored durably.
func (s *Store) Append(sessionID, role, content string, metadata map[string]string) bool {
	s.mu.Lock()

	learnerID, ok := s.byID[sessionID]
	if !ok {
		s.mu.Unlock()
		return false
	}

	sess := s.sessions[learnerID]
	now := s.now()
	if !now.Before(sess.ExpiresAt) {
		s.mu.Unlock()
		return false
	}

	msg := Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: now,
		Metadata:  metadata,
	}

	sess.Messages = append(sess.Messages, msg)
	if len(sess.Messages) > s.maxMessages {
		sess.Messages = sess.Messages[len(sess.Messages)-s.maxMessages:]
	}
	sess.LastActivityAt = now

	recorder := s.recorder
	s.mu.Unlock()

	if recorder != nil {
		go func() {
			if err := recorder.Record(context.Background(), learnerID, msg); err != nil {
				s.logger.WithError(err).WithField("learner", learnerID).
					Warn("Failed to mirror session message to storage")
			}
		}()
	}

	return true
}

// Snapshot returns up to maxMessages of the learner's recent context
func (s *Store) Snapshot(learnerID string, maxMessages int) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[learnerID]
	if !ok || !s.now().Before(sess.ExpiresAt) {
		return Snapshot{}
	}

	msgs := sess.Messages
	if maxMessages > 0 && len(msgs) > maxMessages {
		msgs = msgs[len(msgs)-maxMessages:]
	}

	out := make([]Message, len(msgs))
	copy(out, msgs)

	return Snapshot{
		SessionID:  sess.ID,
		Messages:   out,
		HasHistory: len(out) > 0,
	}
}

// MarkReadyForSummary flags a session as ended from the store's point of
// view
func (s *Store) MarkReadyForSummary(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if learnerID, ok := s.byID[sessionID]; ok {
		s.sessions[learnerID].ReadyForSummary = true
	}
}

// Remove destroys a session after it has been folded into a summary
func (s *Store) Remove(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if learnerID, ok := s.byID[sessionID]; ok {
		delete(s.sessions, learnerID)
		delete(s.byID, sessionID)
	}
}

// Len returns the number of active sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// ExpireSweep removes all expired sessions and returns how many were
// dropped. The store mutex is the single-writer discipline: a sweep can
// never interleave with Append or GetOrCreate on the same session.
func (s *Store) ExpireSweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for learnerID, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, learnerID)
			delete(s.byID, sess.ID)
			removed++
		}
	}

	return removed
}

// StartSweeper runs ExpireSweep on a fixed interval until ctx is done
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.ExpireSweep(); removed > 0 {
					metrics.Default().SessionsExpired.Add(float64(removed))
					s.logger.WithField("removed", removed).Info("Expired sessions swept")
				}
			}
		}
	}()
}
