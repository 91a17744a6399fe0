package server

import (
	"net/http"
	"strings"

	"github.com/google/shlex"

	"github.com/chatlens/chatlens/internal/analytics"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 200
)

type searchResult struct {
	Index   int               `json:"index"`
	Message analytics.Message `json:"message"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Results []searchResult `json:"results"`
	Count   int            `json:"count"`
}

// parseSearchTerms splits the raw query into lowercase terms,
// honoring shell-style quoting so "response time" matches as a
// phrase. Returns nil for unbalanced quotes.
func parseSearchTerms(raw string) []string {
	parts, err := shlex.Split(raw)
	if err != nil {
		return nil
	}
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			terms = append(terms, strings.ToLower(p))
		}
	}
	return terms
}

// matchesTerms reports whether every term occurs in text
// (case-insensitive substring match).
func matchesTerms(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if !strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

func (s *Server) handleSearch(
	w http.ResponseWriter, r *http.Request,
) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}

	terms := parseSearchTerms(query)
	if len(terms) == 0 {
		writeError(w, http.StatusBadRequest, "invalid query")
		return
	}

	limit, ok := parseIntParam(w, r, "limit")
	if !ok {
		return
	}
	limit = clampLimit(limit, defaultSearchLimit, maxSearchLimit)

	snap := s.engine.Snapshot()
	results := []searchResult{}
	for i, msg := range snap.MessageHistory {
		if !matchesTerms(msg.Text, terms) {
			continue
		}
		results = append(results, searchResult{
			Index: i, Message: msg,
		})
		if len(results) >= limit {
			break
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:   query,
		Results: results,
		Count:   len(results),
	})
}
