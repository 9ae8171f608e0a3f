package session

import (
	"context"
	"sync"
	"time"

	"github.com/parlo-app/parlo/internal/domain"
)

// fakeClock returns a fixed, controllable time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeSpeaker records every utterance. With blockFirst set, the first
// Speak call parks until release is closed, simulating slow audio.
type fakeSpeaker struct {
	mu         sync.Mutex
	utterances []string
	blockFirst bool
	blocked    chan struct{}
	release    chan struct{}
	calls      int
}

func newFakeSpeaker() *fakeSpeaker {
	return &fakeSpeaker{
		blocked: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *fakeSpeaker) Speak(_ context.Context, text string, _ float64, _ string) error {
	s.mu.Lock()
	s.utterances = append(s.utterances, text)
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()

	if s.blockFirst && first {
		// Deliberately ignores ctx: the call completes only when the
		// test releases it, like an audio transport that cannot be
		// aborted mid-utterance.
		close(s.blocked)
		<-s.release
	}
	return nil
}

func (s *fakeSpeaker) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeSpeaker) spoke() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.utterances...)
}

// fakeListener is a no-op voice-capture port; transcripts are injected
// directly through Controller.Dispatch in tests.
type fakeListener struct{}

func (fakeListener) Start(context.Context) error { return nil }
func (fakeListener) Stop()                       {}

// fakeLessons serves lesson content from a map.
type fakeLessons struct {
	lessons map[int]domain.Lesson
}

func (f fakeLessons) Lesson(day int) (domain.Lesson, error) {
	l, ok := f.lessons[day]
	if !ok {
		return domain.Lesson{}, domain.ErrLessonNotFound
	}
	return l, nil
}

// recordingSyncer satisfies both the session and scheduler sync ports.
type recordingSyncer struct {
	mu     sync.Mutex
	writes []syncWrite
}

type syncWrite struct {
	kind domain.OpKind
	key  string
}

func (r *recordingSyncer) Write(_ context.Context, kind domain.OpKind, key string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, syncWrite{kind: kind, key: key})
}

func (r *recordingSyncer) kinds() []domain.OpKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.OpKind, 0, len(r.writes))
	for _, w := range r.writes {
		out = append(out, w.kind)
	}
	return out
}

// recordingPresenter collects flow output and signals the test when a
// step is awaiting voice input or a flow has finished.
type recordingPresenter struct {
	mu        sync.Mutex
	steps     []StepView
	feedback  []Feedback
	questions []QuestionView

	awaiting   chan StepView
	asked      chan QuestionView
	lessonDone chan LessonSummary
	examDone   chan ExamSummary
}

func newRecordingPresenter() *recordingPresenter {
	return &recordingPresenter{
		awaiting:   make(chan StepView, 64),
		asked:      make(chan QuestionView, 64),
		lessonDone: make(chan LessonSummary, 4),
		examDone:   make(chan ExamSummary, 4),
	}
}

func (p *recordingPresenter) PresentStep(v StepView) {
	p.mu.Lock()
	p.steps = append(p.steps, v)
	p.mu.Unlock()
	if v.AwaitingVoice {
		p.awaiting <- v
	}
}

func (p *recordingPresenter) PresentFeedback(f Feedback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feedback = append(p.feedback, f)
}

func (p *recordingPresenter) PresentLessonComplete(s LessonSummary) {
	p.lessonDone <- s
}

func (p *recordingPresenter) PresentQuestion(v QuestionView) {
	p.mu.Lock()
	p.questions = append(p.questions, v)
	p.mu.Unlock()
	p.asked <- v
}

func (p *recordingPresenter) PresentExamSummary(s ExamSummary) {
	p.examDone <- s
}

func (p *recordingPresenter) awaitingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.steps {
		if s.AwaitingVoice {
			n++
		}
	}
	return n
}

func (p *recordingPresenter) feedbackKinds() []FeedbackKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]FeedbackKind, 0, len(p.feedback))
	for _, f := range p.feedback {
		out = append(out, f.Kind)
	}
	return out
}
