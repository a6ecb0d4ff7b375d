package application

import (
	"strings"

	"smart-home-bot/internal/domain"
)

// Classifier maps raw text to an intent by keyword membership. Creation
// keywords win over deletion, deletion over mutation; anything else is chat.
type Classifier struct {
	create       []string
	delete       []string
	update       []string
	groupMarkers []string
}

func NewClassifier(vocab domain.Vocabulary) *Classifier {
	return &Classifier{
		create:       lowerAll(vocab.Create),
		delete:       lowerAll(vocab.Delete),
		update:       lowerAll(vocab.Update),
		groupMarkers: lowerAll(vocab.GroupMarkers),
	}
}

func (c *Classifier) Classify(text string) domain.Intent {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, c.create):
		return domain.IntentCreate
	case containsAny(lower, c.delete):
		return domain.IntentDelete
	case containsAny(lower, c.update):
		return domain.IntentUpdate
	default:
		return domain.IntentChat
	}
}

// IsGroup reports whether an update utterance addresses several devices:
// list separators, conjunctions or universal quantifiers.
func (c *Classifier) IsGroup(text string) bool {
	return containsAny(strings.ToLower(text), c.groupMarkers)
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, strings.ToLower(w))
	}
	return out
}
