package analytics

import (
	"encoding/json"
	"fmt"

	"golang.org/x/mod/semver"
)

// snapshotVersion is written into every persisted snapshot. A
// stored snapshot with a different major version is treated as
// absent rather than migrated.
const snapshotVersion = "v1.0.0"

// snapshotEnvelope wraps Stats with the format version for
// persistence.
type snapshotEnvelope struct {
	Version string `json:"version"`
	Stats
}

// encodeSnapshot serializes stats into the persisted snapshot
// format. Timestamps marshal as RFC 3339 with nanosecond
// precision, so instants survive the round trip.
func encodeSnapshot(s *Stats) ([]byte, error) {
	env := snapshotEnvelope{Version: snapshotVersion, Stats: *s}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// decodeSnapshot parses a persisted snapshot. Any structural
// problem (bad JSON, an incompatible version, wrong bucket
// counts, inconsistent counters) is an error; callers treat
// every decode error the same as a missing snapshot.
func decodeSnapshot(data []byte) (*Stats, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	if !semver.IsValid(env.Version) {
		return nil, fmt.Errorf("invalid snapshot version %q", env.Version)
	}
	if semver.Major(env.Version) != semver.Major(snapshotVersion) {
		return nil, fmt.Errorf(
			"incompatible snapshot version %s (want major %s)",
			env.Version, semver.Major(snapshotVersion),
		)
	}

	s := env.Stats
	if err := validateStats(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// validateStats rejects snapshots whose required fields are
// missing or internally inconsistent.
func validateStats(s *Stats) error {
	if len(s.HourlyActivity) != 24 {
		return fmt.Errorf(
			"snapshot has %d hourly buckets, want 24",
			len(s.HourlyActivity),
		)
	}
	if len(s.WeeklyActivity) != 7 {
		return fmt.Errorf(
			"snapshot has %d weekly buckets, want 7",
			len(s.WeeklyActivity),
		)
	}
	if s.TotalMessages != s.UserMessages+s.BotMessages {
		return fmt.Errorf(
			"snapshot counters inconsistent: total %d != user %d + bot %d",
			s.TotalMessages, s.UserMessages, s.BotMessages,
		)
	}
	if s.TotalMessages != len(s.MessageHistory) {
		return fmt.Errorf(
			"snapshot history length %d does not match total %d",
			len(s.MessageHistory), s.TotalMessages,
		)
	}
	if s.PopularTopics == nil {
		s.PopularTopics = []TopicCount{}
	}
	if s.MessageHistory == nil {
		s.MessageHistory = []Message{}
	}
	return nil
}
