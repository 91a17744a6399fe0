package analytics

import "strings"

// topicRule pairs a topic label with its keyword set. The slice
// order is the tie-break: classification scans top to bottom and
// stops at the first topic with any keyword present, so a message
// matching several topics is attributed only to the earliest one.
// Keep this a slice, not a map: map iteration order would make
// topic assignment nondeterministic.
//
// Specific domains are declared before the generic catch-alls so
// a message like "help me debug this function" lands in Code Help
// rather than Technical Support or General Questions.
type topicRule struct {
	topic    string
	keywords []string
}

var topicRules = []topicRule{
	{"Code Help", []string{
		"code", "programming", "function", "debug", "variable", "loop", "class",
	}},
	{"Math Problems", []string{
		// "+" catches bare arithmetic like "what is 2+2".
		"math", "calculate", "equation", "solve", "number", "+",
	}},
	{"Writing Assistance", []string{
		"write", "email", "letter", "document", "essay", "report",
	}},
	{"Creative Writing", []string{
		"story", "creative", "imagine", "fiction", "poem",
	}},
	{"Language Learning", []string{
		"language", "translate", "grammar", "vocabulary", "speak",
	}},
	{"Travel Planning", []string{
		"travel", "trip", "vacation", "hotel", "flight", "destination",
	}},
	{"Health Advice", []string{
		"health", "medical", "diet", "exercise", "symptoms",
	}},
	{"Technical Support", []string{
		"help", "support", "problem", "issue", "error", "bug",
	}},
	{"General Questions", []string{
		"hello", "hi", "how", "what", "when", "where", "why",
	}},
}

// ClassifyTopic assigns at most one topic label to text using
// case-insensitive substring matching against the ordered
// taxonomy. Returns false when no keyword matches.
func ClassifyTopic(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, rule := range topicRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.topic, true
			}
		}
	}
	return "", false
}
