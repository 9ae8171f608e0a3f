package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parlo-app/parlo/internal/domain"
	"github.com/parlo-app/parlo/internal/domain/srs"
	"github.com/parlo-app/parlo/internal/store"
)

// ErrNoQuestions is returned when an exam or review flow is started but
// no question material exists for it.
var ErrNoQuestions = errors.New("no questions available")

// Options tune the flow behavior. Zero values take the defaults.
type Options struct {
	// ShowTargetText controls whether the target-language text is shown
	// during a lesson step or hidden until the learner has spoken.
	ShowTargetText bool

	// TargetRate is the playback rate for target-language audio during a
	// teaching step. Reduced speed makes the sentence easier to shadow.
	TargetRate float64

	// UtterancePause is the silence between the translation audio and
	// the target audio.
	UtterancePause time.Duration

	// SpeakTimeout bounds one audio playback call. On timeout the step
	// proceeds as if the audio had finished.
	SpeakTimeout time.Duration

	// PassThreshold is the minimum voice-match ratio counting as a pass.
	PassThreshold float64

	// ExamQuestionCap bounds the shuffled exam question pool.
	ExamQuestionCap int

	// ReviewSessionCap bounds how many due cards one review pass covers.
	ReviewSessionCap int

	// ExamPassPercent is the score percentage at or above which an exam
	// or review pass counts as passed.
	ExamPassPercent int
}

// DefaultOptions returns the standard flow tuning.
func DefaultOptions() Options {
	return Options{
		ShowTargetText:   true,
		TargetRate:       0.8,
		UtterancePause:   800 * time.Millisecond,
		SpeakTimeout:     15 * time.Second,
		PassThreshold:    0.8,
		ExamQuestionCap:  20,
		ReviewSessionCap: 15,
		ExamPassPercent:  70,
	}
}

// Controller is the single-flow session state machine. It owns the
// learner's progress and completed-lesson records, feeds attempt
// outcomes into the scheduler, and is the only component that starts or
// abandons flows.
//
// The generation counter is the cancellation token: every Start call
// increments it and cancels the previous flow's context; flow goroutines
// re-check the generation after every suspension point and stop silently
// when it no longer matches.
type Controller struct {
	kv        store.KV
	clock     store.Clock
	sched     *srs.Scheduler
	syncer    Syncer
	speaker   Speaker
	listener  Listener
	lessons   LessonSource
	presenter Presenter
	opts      Options
	logger    *slog.Logger

	generation atomic.Int64

	mu     sync.Mutex
	events chan Event
	cancel context.CancelFunc

	wg sync.WaitGroup
}

// NewController creates a session controller. Clock and logger may be
// nil; every other collaborator is required.
func NewController(
	kv store.KV,
	sched *srs.Scheduler,
	syncer Syncer,
	speaker Speaker,
	listener Listener,
	lessons LessonSource,
	presenter Presenter,
	clock store.Clock,
	opts Options,
	logger *slog.Logger,
) *Controller {
	if kv == nil {
		panic("kv cannot be nil")
	}
	if sched == nil {
		panic("sched cannot be nil")
	}
	if syncer == nil {
		panic("syncer cannot be nil")
	}
	if speaker == nil {
		panic("speaker cannot be nil")
	}
	if listener == nil {
		panic("listener cannot be nil")
	}
	if lessons == nil {
		panic("lessons cannot be nil")
	}
	if presenter == nil {
		panic("presenter cannot be nil")
	}
	if clock == nil {
		clock = store.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	def := DefaultOptions()
	if opts.TargetRate <= 0 {
		opts.TargetRate = def.TargetRate
	}
	if opts.UtterancePause <= 0 {
		opts.UtterancePause = def.UtterancePause
	}
	if opts.SpeakTimeout <= 0 {
		opts.SpeakTimeout = def.SpeakTimeout
	}
	if opts.PassThreshold <= 0 {
		opts.PassThreshold = def.PassThreshold
	}
	if opts.ExamQuestionCap <= 0 {
		opts.ExamQuestionCap = def.ExamQuestionCap
	}
	if opts.ReviewSessionCap <= 0 {
		opts.ReviewSessionCap = def.ReviewSessionCap
	}
	if opts.ExamPassPercent <= 0 {
		opts.ExamPassPercent = def.ExamPassPercent
	}

	return &Controller{
		kv:        kv,
		clock:     clock,
		sched:     sched,
		syncer:    syncer,
		speaker:   speaker,
		listener:  listener,
		lessons:   lessons,
		presenter: presenter,
		opts:      opts,
		logger:    logger.With(slog.String("component", "session")),
	}
}

// StartLesson begins the lesson flow for the given day, abandoning any
// flow in progress. Returns domain.ErrLessonLocked when the preceding
// day has not been completed.
func (c *Controller) StartLesson(day int) error {
	if day < 1 {
		return fmt.Errorf("%w: day must be at least 1", domain.ErrValidation)
	}
	if !c.completedLessons().Unlocked(day) {
		return fmt.Errorf("day %d: %w", day, domain.ErrLessonLocked)
	}

	lesson := c.lessonFor(day)
	gen, ctx, events := c.begin()

	p := c.progress()
	if p.CurrentDay != day || p.CurrentSentenceIndex > len(lesson.Sentences) {
		p.CurrentDay = day
		p.CurrentSentenceIndex = 0
		c.saveProgress(ctx, p)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runLesson(ctx, gen, lesson, events)
	}()
	return nil
}

// Dispatch delivers one host event to the current flow. Events arriving
// while no flow is waiting are dropped.
func (c *Controller) Dispatch(ev Event) {
	c.mu.Lock()
	ch := c.events
	c.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
		c.logger.Debug("dropping session event, flow not consuming", "kind", ev.Kind)
	}
}

// Stop abandons the current flow, if any. In-flight steps finish their
// pending audio or timer invisibly and mutate nothing.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.generation.Add(1)
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.events = nil
	c.mu.Unlock()
}

// Close stops the current flow and waits for its goroutine to exit.
func (c *Controller) Close() {
	c.Stop()
	c.wg.Wait()
}

// Progress returns the current lesson position.
func (c *Controller) Progress() domain.Progress {
	return c.progress()
}

// CompletedLessons returns a copy of the completion records.
func (c *Controller) CompletedLessons() domain.CompletedLessons {
	return c.completedLessons().Clone()
}

// begin starts a new flow generation: the previous flow's context is
// cancelled and a fresh event channel becomes the Dispatch target.
func (c *Controller) begin() (int64, context.Context, chan Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen := c.generation.Add(1)
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.events = make(chan Event, 16)
	return gen, ctx, c.events
}

func (c *Controller) stale(gen int64) bool {
	return c.generation.Load() != gen
}

type turnOutcome int

const (
	turnAbandoned turnOutcome = iota
	turnAdvance
)

func (c *Controller) runLesson(ctx context.Context, gen int64, lesson domain.Lesson, events <-chan Event) {
	for {
		if c.stale(gen) {
			return
		}
		p := c.progress()
		idx := p.CurrentSentenceIndex
		if idx >= len(lesson.Sentences) {
			c.finishLesson(ctx, gen, lesson)
			return
		}
		s := lesson.Sentences[idx]

		c.presenter.PresentStep(StepView{
			Day:         lesson.Day,
			Index:       idx,
			Total:       len(lesson.Sentences),
			Target:      c.displayTarget(s.Target),
			Translation: s.Translation,
		})

		// Teach in strict order: translation audio, a beat of silence,
		// then the target sentence at reduced rate.
		if !c.speakStep(ctx, gen, s.Translation, 1.0, lesson.TranslationLang) {
			return
		}
		if !c.pauseStep(ctx, gen) {
			return
		}
		if !c.speakStep(ctx, gen, s.Target, c.opts.TargetRate, lesson.TargetLang) {
			return
		}

		c.presenter.PresentStep(StepView{
			Day:           lesson.Day,
			Index:         idx,
			Total:         len(lesson.Sentences),
			Target:        c.displayTarget(s.Target),
			Translation:   s.Translation,
			AwaitingVoice: true,
		})

		if c.awaitLessonTurn(ctx, gen, lesson, s, events) != turnAdvance {
			return
		}

		p = c.progress()
		p.CurrentSentenceIndex++
		c.saveProgress(ctx, p)
	}
}

// awaitLessonTurn waits for the learner's response to one sentence. A
// passing utterance or a skip advances; a failing utterance records the
// miss, replays the target audio, and keeps waiting on the same step.
func (c *Controller) awaitLessonTurn(ctx context.Context, gen int64, lesson domain.Lesson, s domain.Sentence, events <-chan Event) turnOutcome {
	if err := c.listener.Start(ctx); err != nil {
		c.logger.Debug("voice capture unavailable", "error", err)
	}
	defer c.listener.Stop()

	for {
		ev, ok := c.nextEvent(ctx, events)
		if !ok || c.stale(gen) {
			return turnAbandoned
		}

		switch ev.Kind {
		case EventSkip, EventNext:
			// "I already know this": advance without a scored attempt.
			return turnAdvance

		case EventListenError:
			c.logger.Debug("speech capture error", "error", ev.Err)
			continue

		case EventTranscript:
			ratio := MatchRatio(ev.Transcript, s.Target)
			if c.stale(gen) {
				return turnAbandoned
			}
			if ratio >= c.opts.PassThreshold {
				c.sched.RecordAttempt(ctx, lesson.Day, s.ID, true)
				c.presenter.PresentFeedback(Feedback{Kind: FeedbackPass, Ratio: ratio, Heard: ev.Transcript, Target: s.Target})
				return turnAdvance
			}
			c.sched.RecordAttempt(ctx, lesson.Day, s.ID, false)
			c.presenter.PresentFeedback(Feedback{Kind: FeedbackRetry, Ratio: ratio, Heard: ev.Transcript, Target: s.Target})
			if !c.speakStep(ctx, gen, s.Target, c.opts.TargetRate, lesson.TargetLang) {
				return turnAbandoned
			}

		default:
			c.logger.Debug("ignoring unknown session event", "kind", ev.Kind)
		}
	}
}

// finishLesson marks the day complete exactly once, pins progress at the
// completion card, and presents the summary.
func (c *Controller) finishLesson(ctx context.Context, gen int64, lesson domain.Lesson) {
	if c.stale(gen) {
		return
	}

	cl := c.completedLessons()
	if _, done := cl[lesson.Day]; !done {
		cl[lesson.Day] = domain.CompletedLesson{
			CompletedAt:   c.clock.Now().UTC(),
			SentenceCount: len(lesson.Sentences),
		}
		c.kv.Set(store.CompletedLessonsKey(), cl)
		c.syncer.Write(ctx, domain.OpCompletedLesson, store.CompletedLessonsKey(), cl)
	}

	p := c.progress()
	p.CurrentDay = lesson.Day
	p.CurrentSentenceIndex = len(lesson.Sentences)
	c.saveProgress(ctx, p)

	next := lesson.Day + 1
	c.presenter.PresentLessonComplete(LessonSummary{
		Day:           lesson.Day,
		SentenceCount: len(lesson.Sentences),
		NextDay:       next,
		NextUnlocked:  cl.Unlocked(next),
	})
}

// speakStep plays one utterance bounded by the speak timeout. Playback
// failures are absorbed; the return value reports only whether the flow
// is still current.
func (c *Controller) speakStep(ctx context.Context, gen int64, text string, rate float64, lang string) bool {
	sctx, cancel := context.WithTimeout(ctx, c.opts.SpeakTimeout)
	defer cancel()

	if err := c.speaker.Speak(sctx, text, rate, lang); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Debug("audio playback failed", "error", err)
	}
	return !c.stale(gen) && ctx.Err() == nil
}

func (c *Controller) pauseStep(ctx context.Context, gen int64) bool {
	t := time.NewTimer(c.opts.UtterancePause)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return !c.stale(gen) && ctx.Err() == nil
}

func (c *Controller) nextEvent(ctx context.Context, events <-chan Event) (Event, bool) {
	select {
	case ev := <-events:
		return ev, true
	case <-ctx.Done():
		return Event{}, false
	}
}

func (c *Controller) displayTarget(target string) string {
	if c.opts.ShowTargetText {
		return target
	}
	return ""
}

// lessonFor resolves lesson content, substituting the placeholder for a
// missing day so the flow always has a defined next state.
func (c *Controller) lessonFor(day int) domain.Lesson {
	lesson, err := c.lessons.Lesson(day)
	if err != nil {
		if !errors.Is(err, domain.ErrLessonNotFound) {
			c.logger.Warn("lesson source failed", "day", day, "error", err)
		}
		return domain.PlaceholderLesson(day)
	}
	return lesson
}

func (c *Controller) progress() domain.Progress {
	if raw, ok := c.kv.Get(store.ProgressKey()); ok {
		var p domain.Progress
		if err := json.Unmarshal(raw, &p); err == nil {
			return p
		}
		c.logger.Warn("undecodable progress record, starting fresh")
	}
	return domain.NewProgress(c.clock.Now().UTC())
}

func (c *Controller) saveProgress(ctx context.Context, p domain.Progress) {
	p.LastSavedAt = c.clock.Now().UTC()
	c.kv.Set(store.ProgressKey(), p)
	c.syncer.Write(ctx, domain.OpProgress, store.ProgressKey(), p)
}

func (c *Controller) completedLessons() domain.CompletedLessons {
	cl := domain.CompletedLessons{}
	if raw, ok := c.kv.Get(store.CompletedLessonsKey()); ok {
		if err := json.Unmarshal(raw, &cl); err != nil {
			c.logger.Warn("undecodable completed-lessons record, treating as empty")
		}
	}
	return cl
}
