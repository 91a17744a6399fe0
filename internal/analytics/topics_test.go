package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTopic(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"greeting", "hello", "General Questions", true},
		{"debugging request", "help me debug this function", "Code Help", true},
		{"bare arithmetic", "what is 2+2", "Math Problems", true},
		{"equation", "solve this equation for x", "Math Problems", true},
		{"email draft", "write an email to my landlord", "Writing Assistance", true},
		{"poem", "imagine a poem about rain", "Creative Writing", true},
		{"translation", "translate this to french", "Language Learning", true},
		{"flight", "find me a cheap flight", "Travel Planning", true},
		{"diet", "is this diet healthy", "Health Advice", true},
		{"error report", "I keep getting an error", "Technical Support", true},
		{"question word", "where are my keys", "General Questions", true},
		{"no match", "zzz", "", false},
		{"empty", "", "", false},
		{"whitespace only", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassifyTopic(tt.text)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyTopicCaseInsensitive(t *testing.T) {
	got, ok := ClassifyTopic("HELP ME DEBUG THIS FUNCTION")
	require.True(t, ok)
	assert.Equal(t, "Code Help", got)
}

func TestClassifyTopicFirstMatchWins(t *testing.T) {
	// Matches both Code Help ("code") and Travel Planning
	// ("trip"); the earlier declared topic takes it.
	got, ok := ClassifyTopic("code review on the trip")
	require.True(t, ok)
	assert.Equal(t, "Code Help", got)
}

func TestClassifyTopicSubstringMatch(t *testing.T) {
	// Keywords match as substrings, not whole words.
	got, ok := ClassifyTopic("recoded")
	require.True(t, ok)
	assert.Equal(t, "Code Help", got)
}
