package session

import (
	"time"

	"github.com/btimofeyev/tutor-ai-core/internal/repository"
)

// Group is a time-bounded cluster of a learner's historical messages,
// separated from its neighbors by an inactivity gap.
type Group struct {
	Messages  []repository.RawMessage
	StartTime time.Time
	EndTime   time.Time
}

// GroupIntoSessions partitions time-ordered messages into conversation
// groups. A new group starts when the gap between consecutive messages
// strictly exceeds maxGap; a gap of exactly maxGap keeps the conversation
// together. Single left-to-right pass, stable under re-runs.
func GroupIntoSessions(messages []repository.RawMessage, maxGap time.Duration) []Group {
	if len(messages) == 0 {
		return nil
	}

	groups := []Group{{
		Messages:  []repository.RawMessage{messages[0]},
		StartTime: messages[0].CreatedAt,
		EndTime:   messages[0].CreatedAt,
	}}

	for _, msg := range messages[1:] {
		current := &groups[len(groups)-1]
		if msg.CreatedAt.Sub(current.EndTime) > maxGap {
			groups = append(groups, Group{
				Messages:  []repository.RawMessage{msg},
				StartTime: msg.CreatedAt,
				EndTime:   msg.CreatedAt,
			})
			continue
		}

		current.Messages = append(current.Messages, msg)
		current.EndTime = msg.CreatedAt
	}

	return groups
}
