// Package session implements the cancellable state machine that drives a
// lesson, exam, or review pass: sequencing audio prompts, capturing voice
// input, scoring it, recording spaced-repetition attempts, and advancing
// the learner's progress.
//
// Exactly one flow runs at a time. Starting a new flow increments the
// controller's generation counter and cancels the previous flow's
// context; any in-flight step re-checks the generation after every
// suspension point and abandons silently on mismatch, so an interrupted
// step never mutates visible state.
package session
