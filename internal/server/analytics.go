package server

import (
	"net/http"

	"github.com/chatlens/chatlens/internal/analytics"
)

// summaryResponse is the counters-and-averages view of the
// aggregate state.
type summaryResponse struct {
	TotalMessages       int     `json:"totalMessages"`
	UserMessages        int     `json:"userMessages"`
	BotMessages         int     `json:"botMessages"`
	AverageResponseTime float64 `json:"averageResponseTime"`
	ActiveDays          int     `json:"activeDays"`
	MessagesPerDay      float64 `json:"messagesPerDay"`
}

func summarize(s analytics.Stats) summaryResponse {
	return summaryResponse{
		TotalMessages:       s.TotalMessages,
		UserMessages:        s.UserMessages,
		BotMessages:         s.BotMessages,
		AverageResponseTime: s.AverageResponseTime,
		ActiveDays:          s.ActiveDays,
		MessagesPerDay:      s.MessagesPerDay,
	}
}

func (s *Server) handleSummary(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, summarize(s.engine.Snapshot()))
}

func (s *Server) handleTopics(
	w http.ResponseWriter, _ *http.Request,
) {
	snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"popularTopics": snap.PopularTopics,
	})
}

func (s *Server) handleActivity(
	w http.ResponseWriter, _ *http.Request,
) {
	snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"hourlyActivity": snap.HourlyActivity,
		"weeklyActivity": snap.WeeklyActivity,
	})
}
