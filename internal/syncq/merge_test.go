package syncq

import (
	"testing"
	"time"

	"github.com/parlo-app/parlo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(millis int64) time.Time {
	return time.UnixMilli(millis).UTC()
}

func TestMergeProgress(t *testing.T) {
	t.Parallel()

	local := &domain.Progress{CurrentDay: 5, CurrentSentenceIndex: 2, LastSavedAt: ts(100)}
	remote := &domain.Progress{CurrentDay: 3, CurrentSentenceIndex: 7, LastSavedAt: ts(200)}

	testCases := []struct {
		name     string
		local    *domain.Progress
		remote   *domain.Progress
		expected *domain.Progress
	}{
		{
			name:     "strictly newer remote wins in full",
			local:    local,
			remote:   remote,
			expected: remote,
		},
		{
			name:     "strictly newer local wins in full",
			local:    remote,
			remote:   local,
			expected: remote,
		},
		{
			name:     "no remote copy passes local through",
			local:    local,
			remote:   nil,
			expected: local,
		},
		{
			name:     "no local copy passes remote through",
			local:    nil,
			remote:   remote,
			expected: remote,
		},
		{
			name:     "equal timestamps keep local",
			local:    local,
			remote:   &domain.Progress{CurrentDay: 9, LastSavedAt: ts(100)},
			expected: local,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, MergeProgress(tc.local, tc.remote))
		})
	}
}

func TestMergeCompletedLessonsEarlierWins(t *testing.T) {
	t.Parallel()

	local := domain.CompletedLessons{
		3: {CompletedAt: ts(500), SentenceCount: 10},
		4: {CompletedAt: ts(600), SentenceCount: 11},
	}
	remote := domain.CompletedLessons{
		3: {CompletedAt: ts(300), SentenceCount: 10},
		5: {CompletedAt: ts(700), SentenceCount: 9},
	}

	merged := MergeCompletedLessons(local, remote)

	require.Len(t, merged, 3, "merge is a set union over days")
	assert.True(t, merged[3].CompletedAt.Equal(ts(300)), "earlier completion moment is canonical")
	assert.True(t, merged[4].CompletedAt.Equal(ts(600)))
	assert.True(t, merged[5].CompletedAt.Equal(ts(700)))
}

func TestMergeCards(t *testing.T) {
	t.Parallel()

	early := ts(1_000)
	late := ts(2_000)

	localCard := domain.ReviewCard{Day: 1, SentenceID: "a", Ease: 2.3, Interval: 1, Attempts: 5, LastReviewAt: &early}
	remoteMoreAttempts := domain.ReviewCard{Day: 1, SentenceID: "a", Ease: 2.6, Interval: 3, Attempts: 7, LastReviewAt: &early}
	remoteTieLater := domain.ReviewCard{Day: 1, SentenceID: "a", Ease: 2.6, Interval: 3, Attempts: 5, LastReviewAt: &late}
	localOnly := domain.ReviewCard{Day: 2, SentenceID: "b", Ease: 2.5, Interval: 1, Attempts: 1}
	remoteOnly := domain.ReviewCard{Day: 3, SentenceID: "c", Ease: 2.5, Interval: 1, Attempts: 2}

	t.Run("higher attempts wins", func(t *testing.T) {
		t.Parallel()
		merged := MergeCards([]domain.ReviewCard{localCard}, []domain.ReviewCard{remoteMoreAttempts})
		require.Len(t, merged, 1)
		assert.Equal(t, remoteMoreAttempts, merged[0])
	})

	t.Run("attempt tie goes to later review", func(t *testing.T) {
		t.Parallel()
		merged := MergeCards([]domain.ReviewCard{localCard}, []domain.ReviewCard{remoteTieLater})
		require.Len(t, merged, 1)
		assert.Equal(t, remoteTieLater, merged[0])
	})

	t.Run("full tie keeps local", func(t *testing.T) {
		t.Parallel()
		remoteSame := localCard.Clone()
		remoteSame.Ease = 9.9 // distinguishable, same attempts and review time
		merged := MergeCards([]domain.ReviewCard{localCard}, []domain.ReviewCard{remoteSame})
		require.Len(t, merged, 1)
		assert.Equal(t, localCard, merged[0])
	})

	t.Run("one-sided keys pass through sorted", func(t *testing.T) {
		t.Parallel()
		merged := MergeCards([]domain.ReviewCard{localOnly, localCard}, []domain.ReviewCard{remoteOnly})
		require.Len(t, merged, 3)
		assert.Equal(t, "a", merged[0].SentenceID)
		assert.Equal(t, "b", merged[1].SentenceID)
		assert.Equal(t, "c", merged[2].SentenceID)
	})
}

func TestMergeExamResultsHigherScoreWins(t *testing.T) {
	t.Parallel()

	local := []domain.ExamResult{
		{Week: 1, Score: 15, Total: 20, TakenAt: ts(100)},
		{Week: 2, Score: 10, Total: 20, TakenAt: ts(200)},
	}
	remote := []domain.ExamResult{
		{Week: 1, Score: 18, Total: 20, TakenAt: ts(150)},
		{Week: 3, Score: 12, Total: 20, TakenAt: ts(300)},
	}

	merged := MergeExamResults(local, remote)

	require.Len(t, merged, 3)
	assert.Equal(t, 18, merged[0].Score, "higher score wins for week 1")
	assert.Equal(t, 10, merged[1].Score, "local-only week passes through")
	assert.Equal(t, 12, merged[2].Score, "remote-only week passes through")

	t.Run("score tie keeps local", func(t *testing.T) {
		t.Parallel()
		tie := MergeExamResults(
			[]domain.ExamResult{{Week: 1, Score: 15, Total: 20, TakenAt: ts(100)}},
			[]domain.ExamResult{{Week: 1, Score: 15, Total: 20, TakenAt: ts(999)}},
		)
		require.Len(t, tie, 1)
		assert.True(t, tie[0].TakenAt.Equal(ts(100)))
	})
}

// Merging a snapshot with itself yields that snapshot unchanged, for all
// four mergeable record types.
func TestMergeIdempotence(t *testing.T) {
	t.Parallel()

	now := ts(1_000)
	progress := &domain.Progress{CurrentDay: 4, CurrentSentenceIndex: 3, LastSavedAt: now}
	completed := domain.CompletedLessons{1: {CompletedAt: now, SentenceCount: 8}}
	cards := []domain.ReviewCard{{Day: 1, SentenceID: "a", Ease: 2.5, Interval: 3, Attempts: 2, LastReviewAt: &now}}
	exams := []domain.ExamResult{{Week: 1, Score: 17, Total: 20, Percentage: 85, TakenAt: now}}

	assert.Equal(t, progress, MergeProgress(progress, progress))
	assert.Equal(t, completed, MergeCompletedLessons(completed, completed))
	assert.Equal(t, cards, MergeCards(cards, cards))
	assert.Equal(t, exams, MergeExamResults(exams, exams))
}
