package career

import (
	"strings"

	"github.com/jmatsumoto/feedback360/internal/db"
)

// ActionClassifier maps a free-text development action to one of the stored
// action types.
type ActionClassifier func(title string) string

// classifierKeywords is checked in order; the first keyword found in the
// lowercased title wins.
var classifierKeywords = []struct {
	keywords   []string
	actionType string
}{
	{[]string{"course", "training", "workshop", "bootcamp", "learn"}, db.ActionTypeCourse},
	{[]string{"certification", "certificate", "certified", "exam"}, db.ActionTypeCertification},
	{[]string{"mentor", "coaching", "coach"}, db.ActionTypeMentoring},
	{[]string{"shadow", "pair with", "observe"}, db.ActionTypeShadowing},
	{[]string{"project", "build", "implement", "lead", "deliver"}, db.ActionTypeProject},
}

// ClassifyAction is the default keyword-based classifier. Unmatched titles
// fall back to "other".
func ClassifyAction(title string) string {
	lower := strings.ToLower(title)
	for _, entry := range classifierKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.actionType
			}
		}
	}
	return db.ActionTypeOther
}
