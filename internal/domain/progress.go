package domain

import (
	"fmt"
	"time"
)

// Progress tracks where the account currently is in the lesson sequence.
// There is one instance per account. CurrentSentenceIndex ranges over
// [0, lesson length]; a value equal to the lesson length means the lesson
// is complete and the completion card is showing.
type Progress struct {
	CurrentDay           int       `json:"current_day"`
	CurrentSentenceIndex int       `json:"current_sentence_index"`
	LastSavedAt          time.Time `json:"last_saved_at"`
}

// NewProgress returns the starting progress for a fresh account: day 1,
// first sentence.
func NewProgress(now time.Time) Progress {
	return Progress{
		CurrentDay:           1,
		CurrentSentenceIndex: 0,
		LastSavedAt:          now,
	}
}

// Validate checks if the Progress has valid data.
func (p Progress) Validate() error {
	if p.CurrentDay < 1 {
		return fmt.Errorf("%w: current day must be at least 1", ErrValidation)
	}
	if p.CurrentSentenceIndex < 0 {
		return fmt.Errorf("%w: sentence index cannot be negative", ErrValidation)
	}
	return nil
}

// CompletedLesson records that a lesson day was finished. Once written,
// the day is never unmarked; CompletedAt is the canonical first-completion
// moment and survives merges (the earlier timestamp wins).
type CompletedLesson struct {
	CompletedAt   time.Time `json:"completed_at"`
	SentenceCount int       `json:"sentence_count"`
}

// CompletedLessons maps lesson day to its completion record.
type CompletedLessons map[int]CompletedLesson

// Unlocked reports whether the given lesson day may be attempted.
// Day 1 is always unlocked; day d+1 unlocks once day d is complete.
func (cl CompletedLessons) Unlocked(day int) bool {
	if day == 1 {
		return true
	}
	if day < 1 {
		return false
	}
	_, ok := cl[day-1]
	return ok
}

// Clone returns a copy that shares no state with the receiver.
func (cl CompletedLessons) Clone() CompletedLessons {
	out := make(CompletedLessons, len(cl))
	for day, rec := range cl {
		out[day] = rec
	}
	return out
}
