package domain

import (
	"fmt"
	"time"
)

// Spaced-repetition defaults for a freshly created card.
const (
	// DefaultEase is the ease factor a card starts with.
	DefaultEase = 2.5

	// MinEase is the hard floor below which ease never drops.
	MinEase = 1.3
)

// ReviewCard tracks spaced-repetition state for one (day, sentence) pair.
// Cards are created lazily on the first recorded attempt and never
// deleted. Only the scheduler (internal/domain/srs) mutates them, and it
// does so by deriving a new value rather than editing in place.
type ReviewCard struct {
	Day          int        `json:"day"`
	SentenceID   string     `json:"sentence_id"`
	Ease         float64    `json:"ease"`           // difficulty multiplier, floor 1.3
	Interval     int        `json:"interval"`       // days until next review, >= 1
	NextReviewAt time.Time  `json:"next_review_at"` // when the card becomes due
	Attempts     int        `json:"attempts"`
	Successes    int        `json:"successes"`
	LastReviewAt *time.Time `json:"last_review_at"` // nil before the first attempt
}

// NewReviewCard creates a card with default scheduling state: ease 2.5,
// interval 1 day, due immediately.
func NewReviewCard(day int, sentenceID string, now time.Time) ReviewCard {
	return ReviewCard{
		Day:          day,
		SentenceID:   sentenceID,
		Ease:         DefaultEase,
		Interval:     1,
		NextReviewAt: now,
	}
}

// Validate checks if the ReviewCard has valid data.
func (c ReviewCard) Validate() error {
	if c.Day < 1 {
		return fmt.Errorf("%w: card day must be at least 1", ErrValidation)
	}
	if c.SentenceID == "" {
		return fmt.Errorf("%w: card sentence ID cannot be empty", ErrValidation)
	}
	if c.Ease < MinEase {
		return fmt.Errorf("%w: ease %v below floor %v", ErrValidation, c.Ease, MinEase)
	}
	if c.Interval < 1 {
		return fmt.Errorf("%w: interval must be at least 1 day", ErrValidation)
	}
	return nil
}

// Due reports whether the card is due for review: it has been attempted at
// least once and its next-review time has passed.
func (c ReviewCard) Due(now time.Time) bool {
	return c.Attempts > 0 && !c.NextReviewAt.After(now)
}

// Clone returns a copy that shares no state with the receiver.
func (c ReviewCard) Clone() ReviewCard {
	out := c
	if c.LastReviewAt != nil {
		t := *c.LastReviewAt
		out.LastReviewAt = &t
	}
	return out
}
