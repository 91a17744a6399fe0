package server

import (
	"net/http"
	"time"
)

// timeoutBody is the canned 503 payload http.TimeoutHandler
// writes when a handler overruns the write timeout. Kept as a
// literal because TimeoutHandler only accepts a body string.
const timeoutBody = `{"error":"request timed out"}`

// withTimeout bounds a handler by the configured write timeout.
// Every timeout-wrapped endpoint speaks JSON, so the canned 503
// gets the JSON content type stamped on it as well.
func (s *Server) withTimeout(h http.HandlerFunc) http.Handler {
	inner := http.Handler(h)
	if s.handlerDelay > 0 {
		delay := s.handlerDelay
		inner = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(delay)
			h(w, r)
		})
	}

	timed := http.TimeoutHandler(inner, s.cfg.WriteTimeout, timeoutBody)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timed.ServeHTTP(&timeoutWriter{ResponseWriter: w}, r)
	})
}

// timeoutWriter sets Content-Type on the 503 that TimeoutHandler
// emits, which it otherwise writes with no content type at all.
// Handlers that finish in time have already set their own.
type timeoutWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *timeoutWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if code == http.StatusServiceUnavailable &&
		w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *timeoutWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
