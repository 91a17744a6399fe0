package server

import (
	"fmt"
	"html/template"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var exportTmpl = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Chat transcript</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
.msg { margin: 0.75rem 0; padding: 0.5rem 0.75rem; border-radius: 6px; }
.user { background: #e8f0fe; }
.bot { background: #f1f3f4; }
.meta { color: #5f6368; font-size: 0.8rem; margin-bottom: 0.25rem; }
pre { white-space: pre-wrap; margin: 0; }
</style>
</head>
<body>
<h1>Chat transcript</h1>
<p class="meta">{{.Total}} messages, exported {{.ExportedAt}}</p>
{{range .Messages}}<div class="msg {{.Sender}}">
<div class="meta">{{.Sender}} · {{.When}}{{if .ResponseTime}} · {{.ResponseTime}}{{end}}</div>
<pre>{{.Text}}</pre>
</div>
{{end}}</body>
</html>
`))

type exportMessage struct {
	Sender       string
	When         string
	ResponseTime string
	Text         string
}

type exportData struct {
	Total      int
	ExportedAt string
	Messages   []exportMessage
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeFilename replaces characters that are unsafe in a
// Content-Disposition filename.
func sanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// handleExport streams the full message history as a standalone
// HTML document.
func (s *Server) handleExport(
	w http.ResponseWriter, _ *http.Request,
) {
	snap := s.engine.Snapshot()

	data := exportData{
		Total:      len(snap.MessageHistory),
		ExportedAt: time.Now().Format("2006-01-02 15:04"),
	}
	for _, m := range snap.MessageHistory {
		em := exportMessage{
			Sender: string(m.Sender),
			When:   m.Timestamp.Format("2006-01-02 15:04:05"),
			Text:   m.Text,
		}
		if m.ResponseTime != nil && *m.ResponseTime > 0 {
			em.ResponseTime = fmt.Sprintf("%.1fs", *m.ResponseTime)
		}
		data.Messages = append(data.Messages, em)
	}

	filename := sanitizeFilename(
		"chat-" + time.Now().Format("2006-01-02") + ".html",
	)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, filename),
	)

	var buf strings.Builder
	if err := exportTmpl.Execute(&buf, data); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_, _ = w.Write([]byte(buf.String()))
}
