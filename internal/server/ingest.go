package server

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxBodyBytes caps ingest request bodies. Chat messages are
// short; anything megabyte-sized is a client bug.
const maxBodyBytes = 1 << 20

// messageRequest is the body for both ingest endpoints. An empty
// or missing text is accepted: the engine records any string.
type messageRequest struct {
	Text string `json:"text"`
}

// decodeMessage parses the request body, writing a 400 on
// malformed JSON. Returns ok=false once the response is written.
func decodeMessage(
	w http.ResponseWriter, r *http.Request,
) (messageRequest, bool) {
	var req messageRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil &&
		err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return messageRequest{}, false
	}
	return req, true
}

func (s *Server) handleStartTurn(
	w http.ResponseWriter, _ *http.Request,
) {
	s.engine.StartTurn()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUserMessage(
	w http.ResponseWriter, r *http.Request,
) {
	req, ok := decodeMessage(w, r)
	if !ok {
		return
	}
	s.engine.RecordUserMessage(req.Text)

	snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]int{
		"totalMessages": snap.TotalMessages,
	})
}

func (s *Server) handleBotMessage(
	w http.ResponseWriter, r *http.Request,
) {
	req, ok := decodeMessage(w, r)
	if !ok {
		return
	}
	s.engine.RecordBotMessage(req.Text)

	snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]int{
		"totalMessages": snap.TotalMessages,
	})
}

func (s *Server) handleReset(
	w http.ResponseWriter, _ *http.Request,
) {
	s.engine.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
