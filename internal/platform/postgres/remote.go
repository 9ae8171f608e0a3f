package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/parlo-app/parlo/internal/domain"
	"github.com/parlo-app/parlo/internal/store"
)

// Remote implements store.RemoteStore over PostgreSQL. Every write is a
// row-level upsert against the table's declared conflict columns; the
// engine never assumes read-after-write consistency from it.
type Remote struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewRemote creates a PostgreSQL remote store. It accepts a database
// connection or transaction that should be initialized and managed by
// the caller. If logger is nil, a default logger will be used.
func NewRemote(db store.DBTX, logger *slog.Logger) *Remote {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{
		db:     db,
		logger: logger.With(slog.String("component", "remote_store")),
	}
}

// Ensure Remote implements store.RemoteStore
var _ store.RemoteStore = (*Remote)(nil)

// Open connects to the remote database through the pgx stdlib driver and
// verifies reachability.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open remote database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping remote database: %w", err)
	}
	return db, nil
}

// UpsertProgress writes the account's progress row, conflict on account_id.
func (r *Remote) UpsertProgress(ctx context.Context, accountID string, p domain.Progress) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO progress (account_id, day, sentence_index, saved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE SET
			day = EXCLUDED.day,
			sentence_index = EXCLUDED.sentence_index,
			saved_at = EXCLUDED.saved_at`,
		accountID, p.CurrentDay, p.CurrentSentenceIndex, p.LastSavedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert progress: %w", MapError(err))
	}
	return nil
}

// SelectProgress returns the account's progress row, or
// store.ErrProgressNotFound if none exists.
func (r *Remote) SelectProgress(ctx context.Context, accountID string) (*domain.Progress, error) {
	var p domain.Progress
	err := r.db.QueryRowContext(ctx, `
		SELECT day, sentence_index, saved_at FROM progress WHERE account_id = $1`,
		accountID).Scan(&p.CurrentDay, &p.CurrentSentenceIndex, &p.LastSavedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProgressNotFound
		}
		return nil, fmt.Errorf("select progress: %w", MapError(err))
	}
	return &p, nil
}

// UpsertCard writes one review card row, conflict on
// (account_id, day, sentence_id).
func (r *Remote) UpsertCard(ctx context.Context, accountID string, c domain.ReviewCard) error {
	var lastReview *time.Time
	if c.LastReviewAt != nil {
		utc := c.LastReviewAt.UTC()
		lastReview = &utc
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO review_cards
			(account_id, day, sentence_id, ease, interval_days, next_review_at, attempts, successes, last_review_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (account_id, day, sentence_id) DO UPDATE SET
			ease = EXCLUDED.ease,
			interval_days = EXCLUDED.interval_days,
			next_review_at = EXCLUDED.next_review_at,
			attempts = EXCLUDED.attempts,
			successes = EXCLUDED.successes,
			last_review_at = EXCLUDED.last_review_at`,
		accountID, c.Day, c.SentenceID, c.Ease, c.Interval, c.NextReviewAt.UTC(),
		c.Attempts, c.Successes, lastReview)
	if err != nil {
		return fmt.Errorf("upsert card: %w", MapError(err))
	}
	return nil
}

// SelectCards returns every review card stored for the account.
func (r *Remote) SelectCards(ctx context.Context, accountID string) ([]domain.ReviewCard, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT day, sentence_id, ease, interval_days, next_review_at, attempts, successes, last_review_at
		FROM review_cards WHERE account_id = $1
		ORDER BY day, sentence_id`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("select cards: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var cards []domain.ReviewCard
	for rows.Next() {
		var c domain.ReviewCard
		var lastReview sql.NullTime
		if err := rows.Scan(&c.Day, &c.SentenceID, &c.Ease, &c.Interval, &c.NextReviewAt,
			&c.Attempts, &c.Successes, &lastReview); err != nil {
			return nil, fmt.Errorf("scan card: %w", MapError(err))
		}
		if lastReview.Valid {
			t := lastReview.Time
			c.LastReviewAt = &t
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", MapError(err))
	}
	return cards, nil
}

// UpsertCompletedLesson writes one completion row, conflict on
// (account_id, day). The stored completed_at is the earliest seen, so a
// replayed push can never move a completion moment forward.
func (r *Remote) UpsertCompletedLesson(ctx context.Context, accountID string, day int, cl domain.CompletedLesson) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO completed_lessons (account_id, day, completed_at, sentence_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, day) DO UPDATE SET
			completed_at = LEAST(completed_lessons.completed_at, EXCLUDED.completed_at),
			sentence_count = EXCLUDED.sentence_count`,
		accountID, day, cl.CompletedAt.UTC(), cl.SentenceCount)
	if err != nil {
		return fmt.Errorf("upsert completed lesson: %w", MapError(err))
	}
	return nil
}

// SelectCompletedLessons returns the account's completion map.
func (r *Remote) SelectCompletedLessons(ctx context.Context, accountID string) (domain.CompletedLessons, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT day, completed_at, sentence_count FROM completed_lessons WHERE account_id = $1`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("select completed lessons: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	out := domain.CompletedLessons{}
	for rows.Next() {
		var day int
		var rec domain.CompletedLesson
		if err := rows.Scan(&day, &rec.CompletedAt, &rec.SentenceCount); err != nil {
			return nil, fmt.Errorf("scan completed lesson: %w", MapError(err))
		}
		out[day] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completed lessons: %w", MapError(err))
	}
	return out, nil
}

// UpsertExamResult writes one result row, conflict on (account_id, week).
// A retake overwrites the previous result for the week.
func (r *Remote) UpsertExamResult(ctx context.Context, accountID string, res domain.ExamResult) error {
	wrong, err := json.Marshal(res.WrongAnswers)
	if err != nil {
		return fmt.Errorf("encode wrong answers: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO exam_results (account_id, week, score, total, percentage, taken_at, wrong_answers)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id, week) DO UPDATE SET
			score = EXCLUDED.score,
			total = EXCLUDED.total,
			percentage = EXCLUDED.percentage,
			taken_at = EXCLUDED.taken_at,
			wrong_answers = EXCLUDED.wrong_answers`,
		accountID, res.Week, res.Score, res.Total, res.Percentage, res.TakenAt.UTC(), wrong)
	if err != nil {
		return fmt.Errorf("upsert exam result: %w", MapError(err))
	}
	return nil
}

// SelectExamResults returns every exam result stored for the account.
func (r *Remote) SelectExamResults(ctx context.Context, accountID string) ([]domain.ExamResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT week, score, total, percentage, taken_at, wrong_answers
		FROM exam_results WHERE account_id = $1
		ORDER BY week`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("select exam results: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var results []domain.ExamResult
	for rows.Next() {
		var res domain.ExamResult
		var wrong []byte
		if err := rows.Scan(&res.Week, &res.Score, &res.Total, &res.Percentage, &res.TakenAt, &wrong); err != nil {
			return nil, fmt.Errorf("scan exam result: %w", MapError(err))
		}
		if len(wrong) > 0 {
			if err := json.Unmarshal(wrong, &res.WrongAnswers); err != nil {
				r.logger.Warn("undecodable wrong_answers column, dropping detail",
					"week", res.Week, "error", err)
			}
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exam results: %w", MapError(err))
	}
	return results, nil
}
