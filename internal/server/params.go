package server

import (
	"net/http"
	"strconv"
)

// parseIntParam reads an optional non-negative integer query
// parameter. Returns ok=false after writing a 400 response when
// the value is present but invalid.
func parseIntParam(
	w http.ResponseWriter, r *http.Request, name string,
) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		writeError(w, http.StatusBadRequest,
			name+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}

// clampLimit applies the default for zero and the maximum cap.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
