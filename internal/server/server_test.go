package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chatlens/chatlens/internal/analytics"
	"github.com/chatlens/chatlens/internal/config"
	"github.com/chatlens/chatlens/internal/store"
)

type testEnv struct {
	ts     *httptest.Server
	engine *analytics.Engine
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	cfg := config.Config{
		Host:         "127.0.0.1",
		WriteTimeout: 5 * time.Second,
	}
	return newTestEnvWithConfig(t, cfg, opts...)
}

func newTestEnvWithConfig(
	t *testing.T, cfg config.Config, opts ...Option,
) *testEnv {
	t.Helper()
	engine := analytics.New(store.NewMemoryStore())
	srv := New(cfg, engine, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, engine: engine}
}

func (e *testEnv) get(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(e.ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding GET %s response: %v", path, err)
		}
	}
	return resp
}

func (e *testEnv) post(
	t *testing.T, path, body string, out any,
) *http.Response {
	t.Helper()
	resp, err := http.Post(
		e.ts.URL+path, "application/json", strings.NewReader(body),
	)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding POST %s response: %v", path, err)
		}
	}
	return resp
}

func TestUserMessageEndpoint(t *testing.T) {
	env := newTestEnv(t)

	var out map[string]int
	resp := env.post(t, "/api/v1/messages/user", `{"text":"hello"}`, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if out["totalMessages"] != 1 {
		t.Errorf("totalMessages = %d, want 1", out["totalMessages"])
	}

	var sum summaryResponse
	env.get(t, "/api/v1/analytics/summary", &sum)
	if sum.UserMessages != 1 || sum.TotalMessages != 1 {
		t.Errorf("summary = %+v, want one user message", sum)
	}
}

func TestTurnFlow(t *testing.T) {
	env := newTestEnv(t)

	env.post(t, "/api/v1/turns/start", "", nil)
	env.post(t, "/api/v1/messages/user", `{"text":"what is 2+2"}`, nil)
	env.post(t, "/api/v1/messages/bot", `{"text":"4"}`, nil)

	var sum summaryResponse
	env.get(t, "/api/v1/analytics/summary", &sum)
	if sum.TotalMessages != 2 || sum.UserMessages != 1 || sum.BotMessages != 1 {
		t.Errorf("summary = %+v, want 2 total (1 user, 1 bot)", sum)
	}
	if sum.AverageResponseTime < 0 {
		t.Errorf("averageResponseTime = %v, want >= 0",
			sum.AverageResponseTime)
	}
}

func TestBadJSONBody(t *testing.T) {
	env := newTestEnv(t)

	var body errorResponse
	resp := env.post(t, "/api/v1/messages/user", "{nope", &body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if body.Error == "" {
		t.Error("400 response missing the error payload")
	}
}

func TestEmptyBodyAccepted(t *testing.T) {
	env := newTestEnv(t)

	var out map[string]int
	resp := env.post(t, "/api/v1/messages/user", "", &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if out["totalMessages"] != 1 {
		t.Errorf("totalMessages = %d, want 1", out["totalMessages"])
	}
}

func TestTopicsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.engine.RecordUserMessage("help me debug this function")

	var out struct {
		PopularTopics []analytics.TopicCount `json:"popularTopics"`
	}
	env.get(t, "/api/v1/analytics/topics", &out)
	if len(out.PopularTopics) != 1 ||
		out.PopularTopics[0].Topic != "Code Help" ||
		out.PopularTopics[0].Count != 1 {
		t.Errorf("popularTopics = %+v, want [{Code Help 1}]",
			out.PopularTopics)
	}
}

func TestActivityEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.engine.RecordUserMessage("hello")

	var out struct {
		Hourly []analytics.HourBucket `json:"hourlyActivity"`
		Weekly []analytics.DayBucket  `json:"weeklyActivity"`
	}
	env.get(t, "/api/v1/analytics/activity", &out)
	if len(out.Hourly) != 24 {
		t.Errorf("hourly buckets = %d, want 24", len(out.Hourly))
	}
	if len(out.Weekly) != 7 {
		t.Errorf("weekly buckets = %d, want 7", len(out.Weekly))
	}

	sum := 0
	for _, b := range out.Hourly {
		sum += b.Count
	}
	if sum != 1 {
		t.Errorf("hourly sum = %d, want 1", sum)
	}
}

func TestHistoryPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		env.engine.RecordUserMessage(fmt.Sprintf("message %d", i))
	}

	var page historyResponse
	env.get(t, "/api/v1/history?limit=2", &page)
	if page.Count != 2 || page.Total != 5 || page.Next != 2 {
		t.Errorf("first page = %+v, want count 2 total 5 next 2", page)
	}
	if page.Messages[0].Text != "message 0" {
		t.Errorf("first message = %q, want message 0",
			page.Messages[0].Text)
	}

	env.get(t, "/api/v1/history?limit=2&cursor=4", &page)
	if page.Count != 1 || page.Next != -1 {
		t.Errorf("last page = %+v, want count 1 next -1", page)
	}

	// Cursor beyond the end yields an empty final page.
	env.get(t, "/api/v1/history?cursor=99", &page)
	if page.Count != 0 || page.Next != -1 {
		t.Errorf("overrun page = %+v, want empty", page)
	}

	resp := env.get(t, "/api/v1/history?limit=banana", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", resp.StatusCode)
	}
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	env.engine.RecordUserMessage("the response time looks slow")
	env.engine.RecordUserMessage("time for lunch")
	env.engine.RecordBotMessage("checking response metrics")

	var out searchResponse
	env.get(t, "/api/v1/search?q=time", &out)
	if out.Count != 2 {
		t.Errorf("q=time count = %d, want 2", out.Count)
	}

	// Quoted phrase matches only the exact phrase.
	env.get(t, "/api/v1/search?q=%22response+time%22", &out)
	if out.Count != 1 || out.Results[0].Index != 0 {
		t.Errorf("phrase search = %+v, want one hit at index 0", out)
	}

	// Multiple terms must all occur.
	env.get(t, "/api/v1/search?q=response+metrics", &out)
	if out.Count != 1 || out.Results[0].Index != 2 {
		t.Errorf("multi-term search = %+v, want one hit at index 2", out)
	}

	resp := env.get(t, "/api/v1/search", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", resp.StatusCode)
	}

	// Unbalanced quote cannot be tokenized.
	resp = env.get(t, "/api/v1/search?q=%22dangling", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unbalanced quote status = %d, want 400",
			resp.StatusCode)
	}
}

func TestResetEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.engine.RecordUserMessage("hello")

	resp := env.post(t, "/api/v1/reset", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var sum summaryResponse
	env.get(t, "/api/v1/analytics/summary", &sum)
	if sum.TotalMessages != 0 {
		t.Errorf("totalMessages after reset = %d, want 0",
			sum.TotalMessages)
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	env.engine.RecordUserMessage("hello <script>")

	resp, err := http.Get(env.ts.URL + "/api/v1/export")
	if err != nil {
		t.Fatalf("GET export: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q, want attachment", cd)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if !bytes.Contains(body, []byte("hello &lt;script&gt;")) {
		t.Error("export does not HTML-escape message text")
	}
}

func TestVersionEndpoint(t *testing.T) {
	env := newTestEnv(t, WithVersion(VersionInfo{
		Version: "1.2.3", Commit: "abc", BuildDate: "2025-03-10",
	}))

	var out VersionInfo
	env.get(t, "/api/v1/version", &out)
	if out.Version != "1.2.3" || out.Commit != "abc" {
		t.Errorf("version = %+v", out)
	}
}

// fixedMeta reports a canned snapshot write time.
type fixedMeta struct {
	t  time.Time
	ok bool
}

func (m fixedMeta) UpdatedAt(string) (time.Time, bool, error) {
	return m.t, m.ok, nil
}

func TestStatsEndpoint(t *testing.T) {
	wrote := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	env := newTestEnv(t, WithSnapshotMeta(fixedMeta{t: wrote, ok: true}))
	env.engine.RecordUserMessage("help me debug this function")

	var out statsResponse
	env.get(t, "/api/v1/stats", &out)
	if out.TotalMessages != 1 || out.HistoryLength != 1 {
		t.Errorf("stats = %+v, want one message", out)
	}
	if out.TopicsTracked != 1 {
		t.Errorf("topicsTracked = %d, want 1", out.TopicsTracked)
	}
	if out.SnapshotUpdatedAt != "2025-03-10T14:30:00Z" {
		t.Errorf("snapshotUpdatedAt = %q", out.SnapshotUpdatedAt)
	}
}

func TestStatsEndpointWithoutMeta(t *testing.T) {
	env := newTestEnv(t)

	var out statsResponse
	env.get(t, "/api/v1/stats", &out)
	if out.SnapshotUpdatedAt != "" {
		t.Errorf("snapshotUpdatedAt = %q, want empty",
			out.SnapshotUpdatedAt)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(
		http.MethodOptions, env.ts.URL+"/api/v1/analytics/summary", nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/v1/reset", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHandlerTimeout(t *testing.T) {
	cfg := config.Config{
		Host:         "127.0.0.1",
		WriteTimeout: 20 * time.Millisecond,
	}
	env := newTestEnvWithConfig(t, cfg, withHandlerDelay(200*time.Millisecond))

	resp, err := http.Get(env.ts.URL + "/api/v1/analytics/summary")
	if err != nil {
		t.Fatalf("GET summary: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	// The canned timeout body carries the standard error shape.
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding timeout body: %v", err)
	}
	if body.Error != "request timed out" {
		t.Errorf("error = %q, want request timed out", body.Error)
	}
}

func TestWatchStreamsInitialSummary(t *testing.T) {
	env := newTestEnv(t)
	env.engine.RecordUserMessage("hello")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, env.ts.URL+"/api/v1/watch", nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	r := bufio.NewReader(resp.Body)
	event, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("reading event line: %v", err)
	}
	if strings.TrimSpace(event) != "event: summary" {
		t.Errorf("first line = %q, want event: summary", event)
	}

	data, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("reading data line: %v", err)
	}
	var sum summaryResponse
	payload := strings.TrimPrefix(strings.TrimSpace(data), "data: ")
	if err := json.Unmarshal([]byte(payload), &sum); err != nil {
		t.Fatalf("decoding summary payload %q: %v", payload, err)
	}
	if sum.TotalMessages != 1 {
		t.Errorf("streamed totalMessages = %d, want 1", sum.TotalMessages)
	}
}
