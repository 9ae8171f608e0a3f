package session

import (
	"testing"
	"time"

	"github.com/parlo-app/parlo/internal/domain"
	"github.com/parlo-app/parlo/internal/domain/srs"
	"github.com/parlo-app/parlo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 5 * time.Second

type rig struct {
	c       *Controller
	p       *recordingPresenter
	kv      store.KV
	syncer  *recordingSyncer
	sched   *srs.Scheduler
	clock   *fakeClock
	speaker *fakeSpeaker
}

func newRig(t *testing.T, lessons map[int]domain.Lesson, speaker *fakeSpeaker) *rig {
	t.Helper()
	if speaker == nil {
		speaker = newFakeSpeaker()
	}
	kv := store.NewMemStore(nil)
	clock := newFakeClock()
	syncer := &recordingSyncer{}
	sched := srs.NewScheduler(kv, syncer, clock, nil, nil)
	p := newRecordingPresenter()

	opts := DefaultOptions()
	opts.UtterancePause = time.Millisecond
	opts.SpeakTimeout = time.Minute

	c := NewController(kv, sched, syncer, speaker, fakeListener{}, fakeLessons{lessons: lessons}, p, clock, opts, nil)
	t.Cleanup(c.Close)

	return &rig{c: c, p: p, kv: kv, syncer: syncer, sched: sched, clock: clock, speaker: speaker}
}

func waitAwaiting(t *testing.T, p *recordingPresenter) StepView {
	t.Helper()
	select {
	case v := <-p.awaiting:
		return v
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for a step to await voice input")
		return StepView{}
	}
}

func waitLessonDone(t *testing.T, p *recordingPresenter) LessonSummary {
	t.Helper()
	select {
	case s := <-p.lessonDone:
		return s
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for lesson completion")
		return LessonSummary{}
	}
}

func twoSentenceLesson(day int) domain.Lesson {
	return domain.Lesson{
		Day:             day,
		Title:           "Greetings",
		TargetLang:      "de-DE",
		TranslationLang: "en-US",
		Sentences: []domain.Sentence{
			{ID: "s1", Target: "Guten Morgen", Translation: "Good morning"},
			{ID: "s2", Target: "Danke schön", Translation: "Thank you"},
		},
	}
}

func TestLessonFlowCompletesDay(t *testing.T) {
	t.Parallel()
	r := newRig(t, map[int]domain.Lesson{1: twoSentenceLesson(1)}, nil)

	require.NoError(t, r.c.StartLesson(1))

	step := waitAwaiting(t, r.p)
	assert.Equal(t, 0, step.Index)
	r.c.Dispatch(Event{Kind: EventTranscript, Transcript: "guten morgen"})

	step = waitAwaiting(t, r.p)
	assert.Equal(t, 1, step.Index)
	r.c.Dispatch(Event{Kind: EventTranscript, Transcript: "danke schön"})

	summary := waitLessonDone(t, r.p)
	assert.Equal(t, 1, summary.Day)
	assert.Equal(t, 2, summary.SentenceCount)
	assert.True(t, summary.NextUnlocked, "completing day 1 unlocks day 2")

	cl := r.c.CompletedLessons()
	require.Contains(t, cl, 1)
	assert.Equal(t, 2, cl[1].SentenceCount)

	p := r.c.Progress()
	assert.Equal(t, 1, p.CurrentDay)
	assert.Equal(t, 2, p.CurrentSentenceIndex, "index pinned at lesson length means completion card")

	stats := r.sched.Stats()
	assert.Equal(t, 2, stats.Attempts)
	assert.Equal(t, 2, stats.Successes)

	assert.Contains(t, r.syncer.kinds(), domain.OpCompletedLesson)
	assert.Contains(t, r.syncer.kinds(), domain.OpProgress)
}

func TestLessonSkipAdvancesWithoutAttempt(t *testing.T) {
	t.Parallel()
	r := newRig(t, map[int]domain.Lesson{1: twoSentenceLesson(1)}, nil)

	require.NoError(t, r.c.StartLesson(1))

	waitAwaiting(t, r.p)
	r.c.Dispatch(Event{Kind: EventSkip})
	waitAwaiting(t, r.p)
	r.c.Dispatch(Event{Kind: EventSkip})

	waitLessonDone(t, r.p)
	assert.Equal(t, 0, r.sched.Stats().Attempts, "skip is not a failure and not a success")
}

func TestLessonFailedAttemptRetriesSameSentence(t *testing.T) {
	t.Parallel()
	lesson := domain.Lesson{
		Day:             1,
		TargetLang:      "de-DE",
		TranslationLang: "en-US",
		Sentences: []domain.Sentence{
			{ID: "s1", Target: "Ich habe ein Problem", Translation: "I have a problem"},
		},
	}
	r := newRig(t, map[int]domain.Lesson{1: lesson}, nil)

	require.NoError(t, r.c.StartLesson(1))
	waitAwaiting(t, r.p)

	r.c.Dispatch(Event{Kind: EventTranscript, Transcript: "ich habe"})
	require.Eventually(t, func() bool {
		for _, k := range r.p.feedbackKinds() {
			if k == FeedbackRetry {
				return true
			}
		}
		return false
	}, waitFor, 5*time.Millisecond, "a half-matched utterance must prompt a retry")

	assert.Equal(t, 0, r.c.Progress().CurrentSentenceIndex, "no advance on a miss")

	r.c.Dispatch(Event{Kind: EventTranscript, Transcript: "ich habe ein problem"})
	waitLessonDone(t, r.p)

	stats := r.sched.Stats()
	assert.Equal(t, 2, stats.Attempts)
	assert.Equal(t, 1, stats.Successes)
	assert.Equal(t, []FeedbackKind{FeedbackRetry, FeedbackPass}, r.p.feedbackKinds())
}

func TestLessonListenErrorKeepsWaiting(t *testing.T) {
	t.Parallel()
	r := newRig(t, map[int]domain.Lesson{1: twoSentenceLesson(1)}, nil)

	require.NoError(t, r.c.StartLesson(1))
	waitAwaiting(t, r.p)

	r.c.Dispatch(Event{Kind: EventListenError, Err: assert.AnError})
	r.c.Dispatch(Event{Kind: EventTranscript, Transcript: "guten morgen"})

	waitAwaiting(t, r.p)
	assert.Equal(t, 1, r.c.Progress().CurrentSentenceIndex)
	assert.Equal(t, 1, r.sched.Stats().Attempts, "a capture error is not an attempt")
}

func TestLessonUnlockRule(t *testing.T) {
	t.Parallel()
	lessons := map[int]domain.Lesson{1: twoSentenceLesson(1), 2: twoSentenceLesson(2)}
	r := newRig(t, lessons, nil)

	err := r.c.StartLesson(2)
	require.ErrorIs(t, err, domain.ErrLessonLocked)

	r.kv.Set(store.CompletedLessonsKey(), domain.CompletedLessons{
		1: {CompletedAt: r.clock.Now(), SentenceCount: 2},
	})
	assert.NoError(t, r.c.StartLesson(2))
	assert.NoError(t, r.c.StartLesson(1), "day 1 is always unlocked")
}

func TestMissingLessonGetsPlaceholder(t *testing.T) {
	t.Parallel()
	r := newRig(t, map[int]domain.Lesson{}, nil)

	require.NoError(t, r.c.StartLesson(1))

	step := waitAwaiting(t, r.p)
	assert.Equal(t, 1, step.Total, "placeholder lesson has a single step")

	r.c.Dispatch(Event{Kind: EventSkip})
	summary := waitLessonDone(t, r.p)
	assert.Equal(t, 1, summary.SentenceCount)
}

func TestAbandonedStepMutatesNothing(t *testing.T) {
	t.Parallel()
	speaker := newFakeSpeaker()
	speaker.blockFirst = true
	r := newRig(t, map[int]domain.Lesson{1: twoSentenceLesson(1)}, speaker)

	// Step A parks inside its first audio call.
	require.NoError(t, r.c.StartLesson(1))
	select {
	case <-speaker.blocked:
	case <-time.After(waitFor):
		t.Fatal("step A never reached its audio call")
	}

	// Step B supersedes it, then A's audio finally completes.
	require.NoError(t, r.c.StartLesson(1))
	close(speaker.release)

	waitAwaiting(t, r.p)

	// Give the abandoned goroutine time to misbehave if it were going to.
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, r.p.awaitingCount(), "only step B reaches the user turn")
	assert.Equal(t, 3, speaker.callCount(), "step A stops after the utterance it was parked in")
	assert.Equal(t, 0, r.c.Progress().CurrentSentenceIndex)
	assert.Equal(t, 0, r.sched.Stats().Attempts)
}

func TestStopAbandonsFlow(t *testing.T) {
	t.Parallel()
	r := newRig(t, map[int]domain.Lesson{1: twoSentenceLesson(1)}, nil)

	require.NoError(t, r.c.StartLesson(1))
	waitAwaiting(t, r.p)
	r.c.Stop()

	r.c.Dispatch(Event{Kind: EventTranscript, Transcript: "guten morgen"})
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 0, r.c.Progress().CurrentSentenceIndex)
	assert.Equal(t, 0, r.sched.Stats().Attempts)
}
