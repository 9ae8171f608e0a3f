package domain

import (
	"fmt"
	"time"
)

// WrongAnswer captures one missed question for the post-session summary.
type WrongAnswer struct {
	PromptText string `json:"prompt_text"`
	TargetText string `json:"target_text"`
	HeardText  string `json:"heard_text"`
}

// ExamResult records the outcome of one exam or review pass, keyed by
// week. A retake overwrites the previous result for the same week.
type ExamResult struct {
	Week         int           `json:"week"`
	Score        int           `json:"score"`
	Total        int           `json:"total"`
	Percentage   float64       `json:"percentage"`
	TakenAt      time.Time     `json:"taken_at"`
	WrongAnswers []WrongAnswer `json:"wrong_answers"`
}

// NewExamResult builds a result from a finished question run.
func NewExamResult(week, score, total int, wrong []WrongAnswer, now time.Time) ExamResult {
	pct := 0.0
	if total > 0 {
		pct = float64(score) / float64(total) * 100
	}
	return ExamResult{
		Week:         week,
		Score:        score,
		Total:        total,
		Percentage:   pct,
		TakenAt:      now,
		WrongAnswers: wrong,
	}
}

// Validate checks if the ExamResult has valid data.
func (r ExamResult) Validate() error {
	if r.Week < 1 {
		return fmt.Errorf("%w: week must be at least 1", ErrValidation)
	}
	if r.Total < 0 || r.Score < 0 || r.Score > r.Total {
		return fmt.Errorf("%w: score %d out of range for total %d", ErrValidation, r.Score, r.Total)
	}
	return nil
}
