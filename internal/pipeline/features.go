package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/btimofeyev/tutor-ai-core/internal/session"
)

// topicPatterns map subject labels to keyword patterns matched against
// learner messages when the completion service is unavailable.
var topicPatterns = map[string]*regexp.Regexp{
	"math":    regexp.MustCompile(`(?i)\b(math|algebra|geometry|fractions?|equations?|multiply|divide|numbers?)\b`),
	"reading": regexp.MustCompile(`(?i)\b(read|reading|books?|story|stories|chapters?|characters?|authors?)\b`),
	"writing": regexp.MustCompile(`(?i)\b(write|writing|essays?|paragraphs?|sentences?|grammar|spelling)\b`),
	"science": regexp.MustCompile(`(?i)\b(science|experiments?|biology|chemistry|physics|planets?|energy)\b`),
	"history": regexp.MustCompile(`(?i)\b(history|war|ancient|presidents?|revolution|century)\b`),
}

// DetectTopics returns the subject labels whose keywords appear in the
// group's messages, in a stable order.
func DetectTopics(group session.Group) []string {
	var b strings.Builder
	for _, msg := range group.Messages {
		b.WriteString(msg.Content)
		b.WriteByte('\n')
	}
	text := b.String()

	var topics []string
	for _, label := range []string{"math", "reading", "writing", "science", "history"} {
		if topicPatterns[label].MatchString(text) {
			topics = append(topics, label)
		}
	}

	return topics
}

// EngagementLevel classifies activity from message volume and interaction
// density (messages per conversation).
func EngagementLevel(messageCount, conversationCount int) string {
	if conversationCount <= 0 {
		return "low"
	}

	perConversation := float64(messageCount) / float64(conversationCount)
	switch {
	case messageCount >= 15 && perConversation >= 6:
		return "high"
	case messageCount >= 6 && perConversation >= 3:
		return "medium"
	default:
		return "low"
	}
}

// fallbackSummaryText assembles a deterministic summary from structural
// features when the completion service fails or returns nothing usable.
func fallbackSummaryText(group session.Group) string {
	learnerTurns := 0
	for _, msg := range group.Messages {
		if msg.Role == "user" {
			learnerTurns++
		}
	}

	subject := "their studies"
	if topics := DetectTopics(group); len(topics) > 0 {
		subject = strings.Join(topics, ", ")
	}

	minutes := int(group.EndTime.Sub(group.StartTime).Minutes())
	if minutes < 1 {
		minutes = 1
	}

	return fmt.Sprintf(
		"Worked on %s in a %d-minute conversation (%d messages, %d from the learner). Engagement: %s.",
		subject, minutes, len(group.Messages), learnerTurns,
		EngagementLevel(len(group.Messages), 1),
	)
}
