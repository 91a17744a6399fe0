package server

import (
	"net/http"

	"github.com/chatlens/chatlens/internal/analytics"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type historyResponse struct {
	Messages []analytics.Message `json:"messages"`
	Count    int                 `json:"count"`
	Total    int                 `json:"total"`
	Next     int                 `json:"next"`
}

// handleHistory returns a page of the message history in arrival
// order. The cursor is the index of the first message to return;
// next is -1 on the last page.
func (s *Server) handleHistory(
	w http.ResponseWriter, r *http.Request,
) {
	limit, ok := parseIntParam(w, r, "limit")
	if !ok {
		return
	}
	limit = clampLimit(limit, defaultHistoryLimit, maxHistoryLimit)

	cursor, ok := parseIntParam(w, r, "cursor")
	if !ok {
		return
	}

	snap := s.engine.Snapshot()
	history := snap.MessageHistory

	if cursor > len(history) {
		cursor = len(history)
	}
	end := cursor + limit
	if end > len(history) {
		end = len(history)
	}

	next := -1
	if end < len(history) {
		next = end
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Messages: history[cursor:end],
		Count:    end - cursor,
		Total:    len(history),
		Next:     next,
	})
}
