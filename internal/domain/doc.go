// Package domain defines the core learning-state entities and errors:
// lesson progress, completed lessons, spaced-repetition review cards,
// exam results, and the sync operations that carry them to the remote
// store. Entities are plain values with validation; all mutation lives in
// the owning service packages (internal/domain/srs for cards,
// internal/session for progress and results).
package domain
