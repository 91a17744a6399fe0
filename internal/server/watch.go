package server

import (
	"net/http"
	"time"
)

const (
	// watchPollInterval is how often the watch handler samples
	// the engine for changes.
	watchPollInterval = 1 * time.Second
	// heartbeatTicks is how many polls between keepalives.
	heartbeatTicks = 20
)

// handleWatch streams dashboard summaries over SSE: an initial
// summary, then a fresh one whenever the message totals change,
// with periodic heartbeats to keep proxies from closing the
// connection.
func (s *Server) handleWatch(
	w http.ResponseWriter, r *http.Request,
) {
	stream, err := newEventStream(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	last := summarize(s.engine.Snapshot())
	if !stream.send("summary", last) {
		return
	}

	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			ticks++
			cur := summarize(s.engine.Snapshot())
			if cur != last {
				if !stream.send("summary", cur) {
					return
				}
				last = cur
				ticks = 0
				continue
			}
			if ticks >= heartbeatTicks {
				if !stream.send("heartbeat", struct{}{}) {
					return
				}
				ticks = 0
			}
		}
	}
}
