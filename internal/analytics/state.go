package analytics

import "time"

// Sender identifies which side of the conversation produced a
// message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one chat event in the history. Bot messages carry
// the response time (seconds) measured from the turn start.
// Messages are appended once and never mutated.
type Message struct {
	Text         string    `json:"text"`
	Sender       Sender    `json:"sender"`
	Timestamp    time.Time `json:"timestamp"`
	ResponseTime *float64  `json:"responseTime,omitempty"`
}

// TopicCount is a running tally for one classified topic.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// HourBucket is a fixed slot in the 24-hour activity histogram.
// The slice index always equals Hour.
type HourBucket struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// DayBucket is a fixed slot in the 7-day activity histogram,
// ordered Mon..Sun.
type DayBucket struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// weekdays is the fixed week order for WeeklyActivity.
var weekdays = [7]string{
	"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun",
}

// Stats holds every running statistic plus the full message
// history. All mutation goes through the Engine; the JSON tags
// double as the persisted snapshot format, so field names are
// part of the compatibility surface.
type Stats struct {
	TotalMessages       int          `json:"totalMessages"`
	UserMessages        int          `json:"userMessages"`
	BotMessages         int          `json:"botMessages"`
	AverageResponseTime float64      `json:"averageResponseTime"`
	ActiveDays          int          `json:"activeDays"`
	MessagesPerDay      float64      `json:"messagesPerDay"`
	PopularTopics       []TopicCount `json:"popularTopics"`
	HourlyActivity      []HourBucket `json:"hourlyActivity"`
	WeeklyActivity      []DayBucket  `json:"weeklyActivity"`
	MessageHistory      []Message    `json:"messageHistory"`
}

// NewStats returns the zeroed default: 24 hour buckets in index
// order, 7 day buckets Mon..Sun, empty topics and history.
func NewStats() *Stats {
	s := &Stats{
		PopularTopics:  []TopicCount{},
		HourlyActivity: make([]HourBucket, 24),
		WeeklyActivity: make([]DayBucket, 7),
		MessageHistory: []Message{},
	}
	for h := range s.HourlyActivity {
		s.HourlyActivity[h].Hour = h
	}
	for d := range s.WeeklyActivity {
		s.WeeklyActivity[d].Day = weekdays[d]
	}
	return s
}

// Clone returns a deep copy. Callers holding a clone can never
// reach back into the engine's state.
func (s *Stats) Clone() Stats {
	out := *s
	out.PopularTopics = append([]TopicCount{}, s.PopularTopics...)
	out.HourlyActivity = append([]HourBucket{}, s.HourlyActivity...)
	out.WeeklyActivity = append([]DayBucket{}, s.WeeklyActivity...)
	out.MessageHistory = make([]Message, len(s.MessageHistory))
	for i, m := range s.MessageHistory {
		out.MessageHistory[i] = m
		if m.ResponseTime != nil {
			rt := *m.ResponseTime
			out.MessageHistory[i].ResponseTime = &rt
		}
	}
	return out
}

// recordActivity increments the hour-of-day and weekday buckets
// for t. Every valid timestamp maps to exactly one bucket of
// each kind.
func (s *Stats) recordActivity(t time.Time) {
	s.HourlyActivity[t.Hour()].Count++
	day := t.Format("Mon")
	for i := range s.WeeklyActivity {
		if s.WeeklyActivity[i].Day == day {
			s.WeeklyActivity[i].Count++
			return
		}
	}
}
