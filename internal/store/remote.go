package store

import (
	"context"

	"github.com/parlo-app/parlo/internal/domain"
)

// RemoteStore is the eventually-consistent row store behind the sync
// queue. Each upsert is keyed by the table's declared conflict columns
// (account+day for progress is a single row per account, account+day+
// sentence for cards, account+week for exam results); a newer upsert for
// the same key replaces the row. The engine never assumes read-after-write
// consistency: selects are used only for the one-time pull merge at login
// or reconnect.
type RemoteStore interface {
	// UpsertProgress writes the account's progress row.
	UpsertProgress(ctx context.Context, accountID string, p domain.Progress) error

	// SelectProgress reads the account's progress row.
	// Returns ErrProgressNotFound if the account has never synced progress.
	SelectProgress(ctx context.Context, accountID string) (*domain.Progress, error)

	// UpsertCard writes one review-card row keyed by (account, day, sentence).
	UpsertCard(ctx context.Context, accountID string, c domain.ReviewCard) error

	// SelectCards reads every review-card row for the account.
	SelectCards(ctx context.Context, accountID string) ([]domain.ReviewCard, error)

	// UpsertCompletedLesson writes one completed-lesson row keyed by (account, day).
	UpsertCompletedLesson(ctx context.Context, accountID string, day int, cl domain.CompletedLesson) error

	// SelectCompletedLessons reads the account's completed-lesson rows.
	SelectCompletedLessons(ctx context.Context, accountID string) (domain.CompletedLessons, error)

	// UpsertExamResult writes one exam-result row keyed by (account, week).
	// A retake of the same week overwrites the previous row.
	UpsertExamResult(ctx context.Context, accountID string, r domain.ExamResult) error

	// SelectExamResults reads the account's exam-result rows.
	SelectExamResults(ctx context.Context, accountID string) ([]domain.ExamResult, error)
}

// QueueStore persists pending sync operations so that writes queued while
// offline survive a restart. Operations are deduplicated by their
// operation key: saving an operation whose DedupeKey matches an existing
// row replaces that row's payload in place (retries reset, queue position
// kept).
type QueueStore interface {
	// SaveOperation inserts the operation, or replaces the payload of the
	// existing operation with the same dedupe key.
	SaveOperation(op domain.SyncOperation) error

	// SetRetries updates the persisted retry count of an operation.
	SetRetries(dedupeKey string, retries int) error

	// DeleteOperation removes an operation from the queue.
	DeleteOperation(dedupeKey string) error

	// ListOperations returns all pending operations in enqueue order.
	ListOperations() ([]domain.SyncOperation, error)

	// ClearOperations removes every pending operation.
	ClearOperations() error
}
