package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// sseWriteTimeout bounds each event write so a stalled dashboard
// client cannot pin the watch handler.
const sseWriteTimeout = 3 * time.Second

// eventStream writes Server-Sent Events to one dashboard client.
// All payloads are JSON-encoded.
type eventStream struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// newEventStream sets the SSE headers and flushes them to commit
// the response. Fails when the underlying writer cannot stream.
func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("streaming unsupported: %w", err)
	}
	return &eventStream{w: w, rc: rc}, nil
}

// send writes one named event with a JSON payload. Returns false
// once the client is gone or the write deadline passes; callers
// drop the stream at that point.
func (s *eventStream) send(event string, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("marshaling %s event: %v", event, err)
		return false
	}

	_ = s.rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout))
	defer func() { _ = s.rc.SetWriteDeadline(time.Time{}) }()

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		log.Printf("writing %s event: %v", event, err)
		return false
	}
	return s.rc.Flush() == nil
}
