package session

import (
	"context"
	"math/rand"

	"github.com/parlo-app/parlo/internal/domain"
	"github.com/parlo-app/parlo/internal/store"
)

// quizState tracks one exam or review pass.
type quizState struct {
	mode      Mode
	week      int
	questions []domain.Question
	score     int
	wrong     []domain.WrongAnswer
}

// StartExam begins an exam over the given week's sentences: a shuffled
// pool capped at the exam question cap, with the prompt style chosen per
// question. Abandons any flow in progress.
func (c *Controller) StartExam(week int) error {
	if week < 1 {
		return ErrNoQuestions
	}

	rng := rand.New(rand.NewSource(c.clock.Now().UnixNano()))

	var questions []domain.Question
	firstDay := (week-1)*7 + 1
	for day := firstDay; day < firstDay+7; day++ {
		lesson, err := c.lessons.Lesson(day)
		if err != nil {
			continue
		}
		for _, s := range lesson.Sentences {
			questions = append(questions, c.buildQuestion(lesson, s, randomKind(rng)))
		}
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	rng.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	if len(questions) > c.opts.ExamQuestionCap {
		questions = questions[:c.opts.ExamQuestionCap]
	}

	return c.startQuiz(&quizState{mode: ModeExam, week: week, questions: questions})
}

// StartReview begins a review pass over the due cards, hardest first,
// capped at the review session cap. The result is recorded under the
// current progress week. Abandons any flow in progress.
func (c *Controller) StartReview() error {
	cards := c.sched.DueCards(c.opts.ReviewSessionCap)

	var questions []domain.Question
	lessonCache := map[int]*domain.Lesson{}
	for _, card := range cards {
		lesson, ok := lessonCache[card.Day]
		if !ok {
			if l, err := c.lessons.Lesson(card.Day); err == nil {
				lesson = &l
			}
			lessonCache[card.Day] = lesson
		}
		if lesson == nil {
			continue
		}
		for _, s := range lesson.Sentences {
			if s.ID == card.SentenceID {
				questions = append(questions, c.buildQuestion(*lesson, s, domain.QuestionListen))
				break
			}
		}
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	week := domain.WeekForDay(c.progress().CurrentDay)
	return c.startQuiz(&quizState{mode: ModeReview, week: week, questions: questions})
}

func (c *Controller) buildQuestion(lesson domain.Lesson, s domain.Sentence, kind domain.QuestionKind) domain.Question {
	prompt := s.Translation
	if kind == domain.QuestionListen {
		prompt = s.Target
	}
	return domain.Question{
		Kind:            kind,
		PromptText:      prompt,
		TargetText:      s.Target,
		TranslationText: s.Translation,
		Day:             lesson.Day,
		SentenceID:      s.ID,
	}
}

func randomKind(rng *rand.Rand) domain.QuestionKind {
	if rng.Intn(2) == 0 {
		return domain.QuestionListen
	}
	return domain.QuestionSpeak
}

func (c *Controller) startQuiz(q *quizState) error {
	gen, ctx, events := c.begin()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runQuiz(ctx, gen, q, events)
	}()
	return nil
}

func (c *Controller) runQuiz(ctx context.Context, gen int64, q *quizState, events <-chan Event) {
	for i, question := range q.questions {
		if c.stale(gen) {
			return
		}

		c.presenter.PresentQuestion(QuestionView{
			Mode:     q.mode,
			Index:    i,
			Total:    len(q.questions),
			Question: question,
		})

		if !c.promptQuestion(ctx, gen, question) {
			return
		}
		if c.awaitQuizTurn(ctx, gen, q, question, events) != turnAdvance {
			return
		}
	}
	c.finishQuiz(ctx, gen, q)
}

// promptQuestion plays the prompt audio: the target sentence for a
// listen question, the translation for a speak question. Language tags
// come from the question's lesson, falling back to the placeholder's.
func (c *Controller) promptQuestion(ctx context.Context, gen int64, question domain.Question) bool {
	lesson := c.lessonFor(question.Day)
	if question.Kind == domain.QuestionListen {
		return c.speakStep(ctx, gen, question.TargetText, 1.0, lesson.TargetLang)
	}
	return c.speakStep(ctx, gen, question.TranslationText, 1.0, lesson.TranslationLang)
}

// awaitQuizTurn waits for the answer to one question. A wrong answer
// gets exactly one retry; a second miss (or a skip) counts the question
// wrong and the flow advances.
func (c *Controller) awaitQuizTurn(ctx context.Context, gen int64, q *quizState, question domain.Question, events <-chan Event) turnOutcome {
	if err := c.listener.Start(ctx); err != nil {
		c.logger.Debug("voice capture unavailable", "error", err)
	}
	defer c.listener.Stop()

	retryUsed := false
	for {
		ev, ok := c.nextEvent(ctx, events)
		if !ok || c.stale(gen) {
			return turnAbandoned
		}

		switch ev.Kind {
		case EventSkip:
			// Giving up the question counts it wrong, without a scored
			// attempt against the card.
			q.wrong = append(q.wrong, domain.WrongAnswer{
				PromptText: question.PromptText,
				TargetText: question.TargetText,
				HeardText:  "",
			})
			return turnAdvance

		case EventListenError:
			c.logger.Debug("speech capture error", "error", ev.Err)
			continue

		case EventTranscript:
			ratio := MatchRatio(ev.Transcript, question.TargetText)
			if c.stale(gen) {
				return turnAbandoned
			}
			if ratio >= c.opts.PassThreshold {
				c.sched.RecordAttempt(ctx, question.Day, question.SentenceID, true)
				c.presenter.PresentFeedback(Feedback{Kind: FeedbackPass, Ratio: ratio, Heard: ev.Transcript, Target: question.TargetText})
				q.score++
				return turnAdvance
			}

			c.sched.RecordAttempt(ctx, question.Day, question.SentenceID, false)
			if !retryUsed {
				retryUsed = true
				c.presenter.PresentFeedback(Feedback{Kind: FeedbackRetry, Ratio: ratio, Heard: ev.Transcript, Target: question.TargetText})
				if !c.promptQuestion(ctx, gen, question) {
					return turnAbandoned
				}
				continue
			}
			c.presenter.PresentFeedback(Feedback{Kind: FeedbackFail, Ratio: ratio, Heard: ev.Transcript, Target: question.TargetText})
			q.wrong = append(q.wrong, domain.WrongAnswer{
				PromptText: question.PromptText,
				TargetText: question.TargetText,
				HeardText:  ev.Transcript,
			})
			return turnAdvance

		default:
			c.logger.Debug("ignoring unknown session event", "kind", ev.Kind)
		}
	}
}

// finishQuiz records the result (overwriting any previous take for the
// week) and presents the summary.
func (c *Controller) finishQuiz(ctx context.Context, gen int64, q *quizState) {
	if c.stale(gen) {
		return
	}

	result := domain.NewExamResult(q.week, q.score, len(q.questions), q.wrong, c.clock.Now().UTC())
	key := store.ExamKey(q.week)
	c.kv.Set(key, result)
	c.syncer.Write(ctx, domain.OpExamResult, key, result)

	c.presenter.PresentExamSummary(ExamSummary{
		Mode:   q.mode,
		Result: result,
		Passed: result.Percentage >= float64(c.opts.ExamPassPercent),
	})
}
