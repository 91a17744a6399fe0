package analytics

import (
	"log"
	"sort"
	"sync"
	"time"
)

// Store is the persistence contract the engine depends on. The
// substrate (SQLite, memory) lives behind it; the engine only
// ever uses one fixed key.
type Store interface {
	// Load returns the stored blob for key, or ok=false when
	// nothing is stored under it.
	Load(key string) (data []byte, ok bool, err error)
	// Save stores the blob under key, replacing any prior value.
	Save(key string, data []byte) error
}

// SnapshotKey is the single store key the engine persists under.
const SnapshotKey = "chat_analytics"

// Engine ingests chat events one at a time and maintains the
// running aggregates in Stats. Every mutation is followed by a
// synchronous write-through persist, so the store reflects the
// latest in-memory state after any public call returns.
//
// All public operations take the engine mutex: the engine is
// hosted behind an HTTP server, so the read-modify-persist
// sequence needs an exclusive critical section.
type Engine struct {
	mu    sync.Mutex
	store Store
	key   string
	now   func() time.Time

	stats     *Stats
	turnStart time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source, letting tests control
// timestamps and response-time measurement.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSnapshotKey overrides the store key. Used by tests that
// share a store between engines.
func WithSnapshotKey(key string) Option {
	return func(e *Engine) { e.key = key }
}

// New builds an engine from the persisted snapshot in store, or
// from the zeroed default when nothing is stored, the stored
// blob is corrupt, or the load itself fails. Construction never
// fails: every degraded path starts from a clean state.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		key:   SnapshotKey,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.stats = e.loadOrDefault()
	return e
}

func (e *Engine) loadOrDefault() *Stats {
	data, ok, err := e.store.Load(e.key)
	if err != nil {
		log.Printf("loading analytics snapshot: %v", err)
		return NewStats()
	}
	if !ok {
		return NewStats()
	}
	stats, err := decodeSnapshot(data)
	if err != nil {
		log.Printf("discarding stored snapshot: %v", err)
		return NewStats()
	}
	return stats
}

// StartTurn records the reference instant for the next bot
// message's response time. Calling it again before the bot
// replies discards the previous instant.
func (e *Engine) StartTurn() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.turnStart = e.now()
}

// RecordUserMessage appends a user message and updates every
// aggregate. Any text is accepted, including the empty string.
func (e *Engine) RecordUserMessage(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.stats.UserMessages++
	e.stats.TotalMessages++
	e.stats.MessageHistory = append(e.stats.MessageHistory, Message{
		Text:      text,
		Sender:    SenderUser,
		Timestamp: now,
	})

	if topic, ok := ClassifyTopic(text); ok {
		e.stats.bumpTopic(topic)
	}
	e.stats.recordActivity(now)
	e.updateDailyStats(now)
	e.persist()
}

// RecordBotMessage appends a bot reply carrying the measured
// response time and recomputes the running average. Without a
// preceding StartTurn the response time is recorded as zero.
func (e *Engine) RecordBotMessage(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	rt := 0.0
	if !e.turnStart.IsZero() {
		rt = now.Sub(e.turnStart).Seconds()
		if rt < 0 {
			rt = 0
		}
		e.turnStart = time.Time{}
	}

	e.stats.BotMessages++
	e.stats.TotalMessages++
	e.stats.MessageHistory = append(e.stats.MessageHistory, Message{
		Text:         text,
		Sender:       SenderBot,
		Timestamp:    now,
		ResponseTime: &rt,
	})

	e.stats.AverageResponseTime = e.stats.averageResponseTime()
	e.stats.recordActivity(now)
	e.updateDailyStats(now)
	e.persist()
}

// Snapshot returns a deep copy of the current aggregates.
func (e *Engine) Snapshot() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.Clone()
}

// Reset replaces all aggregates with the zeroed default and
// persists immediately.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = NewStats()
	e.turnStart = time.Time{}
	e.persist()
}

// Close persists the current state one final time. The engine
// writes through on every mutation, so this is a safety net for
// shutdown, not a flush of buffered work.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persist()
	return nil
}

// bumpTopic increments (or inserts) the topic tally and keeps
// PopularTopics sorted descending by count. The sort is stable,
// so equal counts keep first-classification order.
func (s *Stats) bumpTopic(topic string) {
	found := false
	for i := range s.PopularTopics {
		if s.PopularTopics[i].Topic == topic {
			s.PopularTopics[i].Count++
			found = true
			break
		}
	}
	if !found {
		s.PopularTopics = append(s.PopularTopics, TopicCount{
			Topic: topic, Count: 1,
		})
	}
	sort.SliceStable(s.PopularTopics, func(i, j int) bool {
		return s.PopularTopics[i].Count > s.PopularTopics[j].Count
	})
}

// averageResponseTime is the mean over all bot messages with a
// positive recorded response time. A full recompute over history
// on every bot message; history is bounded by session length.
// Zero response times (bot replies without a StartTurn) are
// excluded so they cannot drag the average down.
func (s *Stats) averageResponseTime() float64 {
	sum := 0.0
	count := 0
	for _, m := range s.MessageHistory {
		if m.ResponseTime != nil && *m.ResponseTime > 0 {
			sum += *m.ResponseTime
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// localDate formats t's calendar date in local time.
func localDate(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

// updateDailyStats maintains activeDays and messagesPerDay after
// a message was appended at now.
//
// Active days use a single look-back: the current message's
// local date is compared against the immediately preceding
// arrival. This counts distinct days correctly only because
// arrivals are strictly sequential; it is a heuristic, not a
// distinct-date set.
func (e *Engine) updateDailyStats(now time.Time) {
	s := e.stats
	n := len(s.MessageHistory)
	if n < 2 ||
		localDate(s.MessageHistory[n-2].Timestamp) != localDate(now) {
		s.ActiveDays++
	}

	days := s.ActiveDays
	if days < 1 {
		days = 1
	}
	s.MessagesPerDay = float64(s.TotalMessages) / float64(days)
}

// persist writes the current state through to the store. A
// failed write is logged and otherwise ignored: the in-memory
// state stays authoritative for the rest of the session.
func (e *Engine) persist() {
	data, err := encodeSnapshot(e.stats)
	if err != nil {
		log.Printf("encoding analytics snapshot: %v", err)
		return
	}
	if err := e.store.Save(e.key, data); err != nil {
		log.Printf("saving analytics snapshot: %v", err)
	}
}
