package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// KV is the synchronous device-local store. It is the single source of
// truth for every read in the engine and must remain usable offline.
//
// Both operations are total: implementations absorb and log their own I/O
// failures rather than surfacing them, so callers never handle errors on
// the local read/write path. Get reports absence through its second return
// value; Set serializes the value as JSON before storing it.
type KV interface {
	// Get returns the raw JSON stored under key, or ok=false if the key
	// has never been written.
	Get(key string) (value json.RawMessage, ok bool)

	// Set stores the JSON serialization of value under key, replacing any
	// previous value.
	Set(key string, value any)

	// Keys returns every stored key with the given prefix, sorted.
	Keys(prefix string) []string
}

// Clock supplies wall-clock timestamps. Injected so that scheduling and
// merge logic can be tested against a fixed time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the Clock used outside of tests.
type SystemClock struct{}

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Local key namespaces. One record per key; see the key helpers below.
const (
	progressKey         = "progress"
	completedLessonsKey = "completed_lessons"
	cardKeyPrefix       = "sr:"
	examKeyPrefix       = "exam:"
)

// ProgressKey returns the local key of the account's progress record.
func ProgressKey() string {
	return progressKey
}

// CompletedLessonsKey returns the local key of the completed-lessons map.
func CompletedLessonsKey() string {
	return completedLessonsKey
}

// CardKey returns the local key of the review card for (day, sentenceID).
func CardKey(day int, sentenceID string) string {
	return fmt.Sprintf("%s%d:%s", cardKeyPrefix, day, sentenceID)
}

// CardKeyPrefix returns the prefix shared by all review-card keys.
func CardKeyPrefix() string {
	return cardKeyPrefix
}

// ExamKey returns the local key of the exam result for the given week.
func ExamKey(week int) string {
	return fmt.Sprintf("%sweek_%d", examKeyPrefix, week)
}

// ExamKeyPrefix returns the prefix shared by all exam-result keys.
func ExamKeyPrefix() string {
	return examKeyPrefix
}
