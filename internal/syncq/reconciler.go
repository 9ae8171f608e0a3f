package syncq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/parlo-app/parlo/internal/auth"
	"github.com/parlo-app/parlo/internal/domain"
	"github.com/parlo-app/parlo/internal/store"
)

// Reconciler runs the one-time pull merge at login or reconnect: it
// pulls the remote snapshot of every mergeable record type, merges it
// against the local snapshot, writes the merged value to the local
// store, and re-enqueues a push for any record where the remote side
// lost. After a reconcile, push semantics take over — every subsequent
// write is authoritative per record.
type Reconciler struct {
	kv     store.KV
	remote store.RemoteStore
	queue  *Queue
	authn  auth.Authenticator
	logger *slog.Logger
}

// NewReconciler creates a Reconciler. A nil logger uses the default.
func NewReconciler(kv store.KV, remote store.RemoteStore, queue *Queue, authn auth.Authenticator, logger *slog.Logger) *Reconciler {
	if kv == nil {
		panic("kv cannot be nil")
	}
	if queue == nil {
		panic("queue cannot be nil")
	}
	if authn == nil {
		panic("authn cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		kv:     kv,
		remote: remote,
		queue:  queue,
		authn:  authn,
		logger: logger.With(slog.String("component", "reconciler")),
	}
}

// Reconcile merges every record type. Without an active session or a
// remote store it is a no-op. The returned error is informational for
// the host; local state is never left worse than before the call.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	accountID, ok := r.authn.UserID()
	if !ok || r.remote == nil {
		return nil
	}

	if err := r.reconcileProgress(ctx, accountID); err != nil {
		return fmt.Errorf("reconcile progress: %w", err)
	}
	if err := r.reconcileCompletedLessons(ctx, accountID); err != nil {
		return fmt.Errorf("reconcile completed lessons: %w", err)
	}
	if err := r.reconcileCards(ctx, accountID); err != nil {
		return fmt.Errorf("reconcile cards: %w", err)
	}
	if err := r.reconcileExamResults(ctx, accountID); err != nil {
		return fmt.Errorf("reconcile exam results: %w", err)
	}

	r.logger.Info("reconcile complete", "account_id", accountID)
	return nil
}

func (r *Reconciler) reconcileProgress(ctx context.Context, accountID string) error {
	remote, err := r.remote.SelectProgress(ctx, accountID)
	if err != nil && !store.IsNotFound(err) {
		return err
	}

	var local *domain.Progress
	if raw, ok := r.kv.Get(store.ProgressKey()); ok {
		var p domain.Progress
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil {
			local = &p
		}
	}

	merged := MergeProgress(local, remote)
	if merged == nil {
		return nil
	}

	r.kv.Set(store.ProgressKey(), merged)
	if remote == nil || !progressEqual(*merged, *remote) {
		r.queue.Write(ctx, domain.OpProgress, store.ProgressKey(), merged)
	}
	return nil
}

func (r *Reconciler) reconcileCompletedLessons(ctx context.Context, accountID string) error {
	remote, err := r.remote.SelectCompletedLessons(ctx, accountID)
	if err != nil && !store.IsNotFound(err) {
		return err
	}

	local := domain.CompletedLessons{}
	if raw, ok := r.kv.Get(store.CompletedLessonsKey()); ok {
		// Undecodable local state is treated as empty; the merge then
		// restores whatever the remote side knows.
		_ = json.Unmarshal(raw, &local)
	}

	merged := MergeCompletedLessons(local, remote)
	if len(merged) == 0 {
		return nil
	}

	r.kv.Set(store.CompletedLessonsKey(), merged)
	if !completedLessonsEqual(merged, remote) {
		r.queue.Write(ctx, domain.OpCompletedLesson, store.CompletedLessonsKey(), merged)
	}
	return nil
}

func (r *Reconciler) reconcileCards(ctx context.Context, accountID string) error {
	remote, err := r.remote.SelectCards(ctx, accountID)
	if err != nil && !store.IsNotFound(err) {
		return err
	}

	local := make([]domain.ReviewCard, 0)
	for _, key := range r.kv.Keys(store.CardKeyPrefix()) {
		raw, ok := r.kv.Get(key)
		if !ok {
			continue
		}
		var c domain.ReviewCard
		if jsonErr := json.Unmarshal(raw, &c); jsonErr == nil {
			local = append(local, c)
		}
	}

	remoteByKey := make(map[string]domain.ReviewCard, len(remote))
	for _, c := range remote {
		remoteByKey[cardMapKey(c)] = c
	}

	for _, merged := range MergeCards(local, remote) {
		key := cardMapKey(merged)
		r.kv.Set(key, merged)
		if rc, ok := remoteByKey[key]; !ok || !cardEqual(merged, rc) {
			r.queue.Write(ctx, domain.OpCard, key, merged)
		}
	}
	return nil
}

func (r *Reconciler) reconcileExamResults(ctx context.Context, accountID string) error {
	remote, err := r.remote.SelectExamResults(ctx, accountID)
	if err != nil && !store.IsNotFound(err) {
		return err
	}

	local := make([]domain.ExamResult, 0)
	for _, key := range r.kv.Keys(store.ExamKeyPrefix()) {
		raw, ok := r.kv.Get(key)
		if !ok {
			continue
		}
		var res domain.ExamResult
		if jsonErr := json.Unmarshal(raw, &res); jsonErr == nil {
			local = append(local, res)
		}
	}

	remoteByWeek := make(map[int]domain.ExamResult, len(remote))
	for _, res := range remote {
		remoteByWeek[res.Week] = res
	}

	for _, merged := range MergeExamResults(local, remote) {
		key := store.ExamKey(merged.Week)
		r.kv.Set(key, merged)
		if rr, ok := remoteByWeek[merged.Week]; !ok || !examEqual(merged, rr) {
			r.queue.Write(ctx, domain.OpExamResult, key, merged)
		}
	}
	return nil
}

// Snapshot equality, used only to decide whether the remote side needs a
// convergence push. Timestamps compare with Equal so serialization
// round-trips do not force spurious writes.

func progressEqual(a, b domain.Progress) bool {
	return a.CurrentDay == b.CurrentDay &&
		a.CurrentSentenceIndex == b.CurrentSentenceIndex &&
		a.LastSavedAt.Equal(b.LastSavedAt)
}

func completedLessonsEqual(a, b domain.CompletedLessons) bool {
	if len(a) != len(b) {
		return false
	}
	for day, ra := range a {
		rb, ok := b[day]
		if !ok || ra.SentenceCount != rb.SentenceCount || !ra.CompletedAt.Equal(rb.CompletedAt) {
			return false
		}
	}
	return true
}

func cardEqual(a, b domain.ReviewCard) bool {
	if a.Day != b.Day || a.SentenceID != b.SentenceID ||
		a.Ease != b.Ease || a.Interval != b.Interval ||
		a.Attempts != b.Attempts || a.Successes != b.Successes ||
		!a.NextReviewAt.Equal(b.NextReviewAt) {
		return false
	}
	switch {
	case a.LastReviewAt == nil && b.LastReviewAt == nil:
		return true
	case a.LastReviewAt == nil || b.LastReviewAt == nil:
		return false
	default:
		return a.LastReviewAt.Equal(*b.LastReviewAt)
	}
}

func examEqual(a, b domain.ExamResult) bool {
	return a.Week == b.Week && a.Score == b.Score && a.Total == b.Total &&
		a.Percentage == b.Percentage && a.TakenAt.Equal(b.TakenAt) &&
		len(a.WrongAnswers) == len(b.WrongAnswers)
}
