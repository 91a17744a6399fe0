package server

import (
	"net/http"
	"time"

	"github.com/chatlens/chatlens/internal/analytics"
)

// SnapshotMeta reports when the persisted snapshot was last
// written. Implemented by the SQLite store.
type SnapshotMeta interface {
	UpdatedAt(key string) (time.Time, bool, error)
}

// WithSnapshotMeta wires store metadata into the stats endpoint.
func WithSnapshotMeta(m SnapshotMeta) Option {
	return func(s *Server) { s.meta = m }
}

type statsResponse struct {
	TotalMessages     int    `json:"totalMessages"`
	HistoryLength     int    `json:"historyLength"`
	TopicsTracked     int    `json:"topicsTracked"`
	SpoolDir          string `json:"spoolDir"`
	SnapshotUpdatedAt string `json:"snapshotUpdatedAt,omitempty"`
}

// handleStats returns engine and store metadata for diagnostics.
func (s *Server) handleStats(
	w http.ResponseWriter, _ *http.Request,
) {
	snap := s.engine.Snapshot()
	resp := statsResponse{
		TotalMessages: snap.TotalMessages,
		HistoryLength: len(snap.MessageHistory),
		TopicsTracked: len(snap.PopularTopics),
		SpoolDir:      s.cfg.SpoolDir,
	}
	if s.meta != nil {
		t, ok, err := s.meta.UpdatedAt(analytics.SnapshotKey)
		if err == nil && ok {
			resp.SnapshotUpdatedAt = t.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
