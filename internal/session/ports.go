package session

import (
	"context"

	"github.com/parlo-app/parlo/internal/domain"
)

// Speaker plays synthesized audio for a piece of text. The controller
// only needs the completion signal; playback failures are absorbed and
// the flow moves on as if the audio had finished.
type Speaker interface {
	Speak(ctx context.Context, text string, rate float64, lang string) error
}

// Listener controls voice capture. Transcripts and capture errors arrive
// asynchronously through Controller.Dispatch, not through this interface.
type Listener interface {
	Start(ctx context.Context) error
	Stop()
}

// LessonSource resolves lesson content by day. A missing day returns
// domain.ErrLessonNotFound; the controller substitutes a placeholder
// lesson rather than failing the flow.
type LessonSource interface {
	Lesson(day int) (domain.Lesson, error)
}

// Syncer schedules one local mutation for remote delivery. Satisfied by
// the sync queue; never returns an error to the caller.
type Syncer interface {
	Write(ctx context.Context, kind domain.OpKind, key string, payload any)
}

// StepView describes the sentence the flow is currently teaching.
type StepView struct {
	Day           int
	Index         int
	Total         int
	Target        string // empty when the display preference hides it
	Translation   string
	AwaitingVoice bool
}

// FeedbackKind classifies the outcome of one evaluated utterance.
type FeedbackKind string

// Feedback outcomes.
const (
	FeedbackPass  FeedbackKind = "pass"
	FeedbackRetry FeedbackKind = "retry"
	FeedbackFail  FeedbackKind = "fail"
)

// Feedback reports how an utterance scored against the target sentence.
type Feedback struct {
	Kind   FeedbackKind
	Ratio  float64
	Heard  string
	Target string
}

// LessonSummary is presented when a lesson day is finished.
type LessonSummary struct {
	Day           int
	SentenceCount int
	NextDay       int
	NextUnlocked  bool
}

// QuestionView describes the exam or review question being asked.
type QuestionView struct {
	Mode     Mode
	Index    int
	Total    int
	Question domain.Question
}

// ExamSummary is presented when an exam or review pass completes.
// Passed reflects the score threshold; below it the host shows a
// "these sentences will come back for review" message, never an error.
type ExamSummary struct {
	Mode   Mode
	Result domain.ExamResult
	Passed bool
}

// Presenter receives flow output for rendering. Implementations must not
// block; the controller calls these from its flow goroutine.
type Presenter interface {
	PresentStep(StepView)
	PresentFeedback(Feedback)
	PresentLessonComplete(LessonSummary)
	PresentQuestion(QuestionView)
	PresentExamSummary(ExamSummary)
}

// Mode selects between the lesson flow and the two quiz flows.
type Mode string

// Flow modes.
const (
	ModeLesson Mode = "lesson"
	ModeExam   Mode = "exam"
	ModeReview Mode = "review"
)
