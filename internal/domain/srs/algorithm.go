package srs

import (
	"math"
	"time"

	"github.com/parlo-app/parlo/internal/domain"
)

// calculateNewEase adjusts the ease factor for an attempt outcome.
//
// Correct attempts raise ease by the configured bonus; incorrect attempts
// lower it by the penalty. The result is clamped to the floor, and has no
// ceiling beyond natural growth.
func calculateNewEase(currentEase float64, correct bool, params *Params) float64 {
	var newEase float64
	if correct {
		newEase = currentEase + params.EaseBonus
	} else {
		newEase = currentEase - params.EasePenalty
	}

	if newEase < params.EaseFloor {
		newEase = params.EaseFloor
	}

	return newEase
}

// calculateNewInterval determines the next interval in days.
//
// An incorrect attempt resets the interval to one day. A correct attempt
// on a card still at the initial one-day interval jumps straight to the
// configured first-correct interval; otherwise the interval is scaled by
// the card's ease factor as it stood before this attempt, rounded to the
// nearest day. The result is never below one day.
func calculateNewInterval(currentInterval int, currentEase float64, correct bool, params *Params) int {
	if !correct {
		return 1
	}

	if currentInterval <= 1 {
		return params.FirstCorrectInterval
	}

	next := int(math.Round(float64(currentInterval) * currentEase))
	if next < 1 {
		next = 1
	}
	return next
}

// calculateNextCard creates a new ReviewCard with updated values for one
// recorded attempt.
//
// The original card is not modified; following the immutable update
// pattern, a new value is derived with the attempt counters incremented,
// the ease and interval recalculated, and the next review scheduled
// interval days after now. The interval calculation uses the pre-attempt
// ease, so a success scales by the ease the card had earned before it.
func calculateNextCard(card domain.ReviewCard, correct bool, now time.Time, params *Params) domain.ReviewCard {
	next := card.Clone()

	next.Attempts++
	if correct {
		next.Successes++
	}

	next.Interval = calculateNewInterval(card.Interval, card.Ease, correct, params)
	next.Ease = calculateNewEase(card.Ease, correct, params)
	next.NextReviewAt = now.Add(time.Duration(next.Interval) * 24 * time.Hour)
	reviewedAt := now
	next.LastReviewAt = &reviewedAt

	return next
}
