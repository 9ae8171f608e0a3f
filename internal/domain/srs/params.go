package srs

import "github.com/parlo-app/parlo/internal/domain"

// Params defines all configurable parameters for the scheduling algorithm.
type Params struct {
	// EaseFloor is the hard minimum ease factor. Ease never drops below
	// it, no matter how many attempts fail.
	EaseFloor float64

	// EaseBonus is added to ease after a correct attempt.
	EaseBonus float64

	// EasePenalty is subtracted from ease after an incorrect attempt.
	EasePenalty float64

	// FirstCorrectInterval is the interval, in days, assigned when a card
	// at the initial one-day interval is answered correctly. Subsequent
	// correct answers scale the interval by ease instead.
	FirstCorrectInterval int
}

// ParamsConfig allows overriding the default parameters when creating a
// new Params instance. Zero fields keep their defaults.
type ParamsConfig struct {
	EaseFloor            float64
	EaseBonus            float64
	EasePenalty          float64
	FirstCorrectInterval int
}

// NewDefaultParams creates a Params instance with the default tuning:
// ease floor 1.3, +0.1 per success, -0.2 per failure, and a jump from the
// initial one-day interval straight to three days on the first success.
func NewDefaultParams() *Params {
	return &Params{
		EaseFloor:            domain.MinEase,
		EaseBonus:            0.1,
		EasePenalty:          0.2,
		FirstCorrectInterval: 3,
	}
}

// NewParams creates a Params instance with custom configuration.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.EaseFloor > 0 {
		params.EaseFloor = config.EaseFloor
	}
	if config.EaseBonus > 0 {
		params.EaseBonus = config.EaseBonus
	}
	if config.EasePenalty > 0 {
		params.EasePenalty = config.EasePenalty
	}
	if config.FirstCorrectInterval > 0 {
		params.FirstCorrectInterval = config.FirstCorrectInterval
	}

	return params
}
