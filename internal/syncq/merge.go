package syncq

import (
	"sort"

	"github.com/parlo-app/parlo/internal/domain"
	"github.com/parlo-app/parlo/internal/store"
)

// Merge resolvers reconcile a local snapshot of a record type against a
// remote snapshot, once, at login or reconnect. They are deterministic
// and side-effect-free; callers write the merged value to the local store
// and re-enqueue it for push so the losing side converges. Merging a
// snapshot with itself yields that snapshot unchanged.

// MergeProgress resolves two progress snapshots: the strictly newer
// lastSavedAt wins in full, with no field-level merge. A missing side
// passes the other through; on equal timestamps the local side wins so a
// device never sees its own progress regress after a no-op reconcile.
func MergeProgress(local, remote *domain.Progress) *domain.Progress {
	if local == nil {
		return remote
	}
	if remote == nil {
		return local
	}
	if remote.LastSavedAt.After(local.LastSavedAt) {
		return remote
	}
	return local
}

// MergeCompletedLessons resolves two completion maps by set union over
// lesson days. For a day present on both sides with different records,
// the earlier completedAt wins: the day was first completed at that
// moment, and that is the canonical completion record.
func MergeCompletedLessons(local, remote domain.CompletedLessons) domain.CompletedLessons {
	merged := make(domain.CompletedLessons, len(local)+len(remote))
	for day, rec := range local {
		merged[day] = rec
	}
	for day, rec := range remote {
		existing, ok := merged[day]
		if !ok || rec.CompletedAt.Before(existing.CompletedAt) {
			merged[day] = rec
		}
	}
	return merged
}

// MergeCards resolves two card collections per (day, sentence) key: the
// snapshot with the higher attempt count wins; on a tie, the later
// lastReviewAt wins (local on a full tie). Keys present on only one side
// pass through unchanged. The result is sorted by (day, sentence ID).
func MergeCards(local, remote []domain.ReviewCard) []domain.ReviewCard {
	merged := make(map[string]domain.ReviewCard, len(local)+len(remote))
	for _, c := range local {
		merged[cardMapKey(c)] = c
	}
	for _, c := range remote {
		existing, ok := merged[cardMapKey(c)]
		if !ok || remoteCardWins(existing, c) {
			merged[cardMapKey(c)] = c
		}
	}

	out := make([]domain.ReviewCard, 0, len(merged))
	for _, c := range merged {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].SentenceID < out[j].SentenceID
	})
	return out
}

// MergeExamResults resolves two result sets per week: the higher score
// wins, the local side on a tie. Weeks present on only one side pass
// through. The result is sorted by week.
func MergeExamResults(local, remote []domain.ExamResult) []domain.ExamResult {
	merged := make(map[int]domain.ExamResult, len(local)+len(remote))
	for _, r := range local {
		merged[r.Week] = r
	}
	for _, r := range remote {
		existing, ok := merged[r.Week]
		if !ok || r.Score > existing.Score {
			merged[r.Week] = r
		}
	}

	out := make([]domain.ExamResult, 0, len(merged))
	for _, r := range merged {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out
}

func cardMapKey(c domain.ReviewCard) string {
	return store.CardKey(c.Day, c.SentenceID)
}

// remoteCardWins reports whether the remote card beats the local one:
// more attempts, or equal attempts with a strictly later last review.
func remoteCardWins(local, remote domain.ReviewCard) bool {
	if remote.Attempts != local.Attempts {
		return remote.Attempts > local.Attempts
	}
	if remote.LastReviewAt == nil {
		return false
	}
	if local.LastReviewAt == nil {
		return true
	}
	return remote.LastReviewAt.After(*local.LastReviewAt)
}
