package syncq

import (
	"context"
	"fmt"

	"github.com/parlo-app/parlo/internal/domain"
	"github.com/parlo-app/parlo/internal/store"
)

// applyOperation delivers one queued operation to the remote store,
// dispatching on the operation's kind tag. A payload that does not decode
// as its kind's record type yields ErrInvalidOperation, which the queue
// treats exactly like a network failure: retry, then drop.
func applyOperation(ctx context.Context, remote store.RemoteStore, accountID string, op domain.SyncOperation) error {
	switch op.Kind {
	case domain.OpProgress:
		var p domain.Progress
		if err := op.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("%w: progress payload: %v", domain.ErrInvalidOperation, err)
		}
		return remote.UpsertProgress(ctx, accountID, p)

	case domain.OpCard:
		var c domain.ReviewCard
		if err := op.UnmarshalPayload(&c); err != nil {
			return fmt.Errorf("%w: card payload: %v", domain.ErrInvalidOperation, err)
		}
		return remote.UpsertCard(ctx, accountID, c)

	case domain.OpCompletedLesson:
		var cl domain.CompletedLessons
		if err := op.UnmarshalPayload(&cl); err != nil {
			return fmt.Errorf("%w: completed-lessons payload: %v", domain.ErrInvalidOperation, err)
		}
		for day, rec := range cl {
			if err := remote.UpsertCompletedLesson(ctx, accountID, day, rec); err != nil {
				return err
			}
		}
		return nil

	case domain.OpExamResult:
		var r domain.ExamResult
		if err := op.UnmarshalPayload(&r); err != nil {
			return fmt.Errorf("%w: exam-result payload: %v", domain.ErrInvalidOperation, err)
		}
		return remote.UpsertExamResult(ctx, accountID, r)

	default:
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidOperation, op.Kind)
	}
}
