// Package testspool provides shared spool-event fixture builders
// for ingest and server test packages.
package testspool

import (
	"encoding/json"
	"strings"
)

// TurnStartJSON returns a turn_start event as a JSON string.
func TurnStartJSON() string {
	return mustMarshal(map[string]any{"type": "turn_start"})
}

// UserJSON returns a user message event as a JSON string.
func UserJSON(text string) string {
	return mustMarshal(map[string]any{
		"sender": "user",
		"text":   text,
	})
}

// BotJSON returns a bot message event as a JSON string.
func BotJSON(text string) string {
	return mustMarshal(map[string]any{
		"sender": "bot",
		"text":   text,
	})
}

// JoinJSONL joins event lines into spool file content with a
// trailing newline, so every line is complete.
func JoinJSONL(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func mustMarshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
