// Package srs owns the spaced-repetition card lifecycle: it records
// attempt outcomes, computes the next review schedule, and answers
// due-item queries for review sessions. The algorithm is an SM-2 variant
// with binary outcomes; the pure calculation lives in algorithm.go and
// the Scheduler service wires it to the local store and the sync queue.
package srs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/parlo-app/parlo/internal/domain"
	"github.com/parlo-app/parlo/internal/store"
)

// Common errors.
var (
	ErrInvalidDays = errors.New("postpone days must be at least 1")
)

// Syncer schedules a local record for eventual remote delivery. Implemented
// by the sync queue; the scheduler never talks to the remote store directly.
type Syncer interface {
	Write(ctx context.Context, kind domain.OpKind, key string, payload any)
}

// Scheduler maintains one review card per (day, sentence) pair. Cards are
// read from and written to the local store synchronously; every mutation
// is also handed to the Syncer for background delivery.
type Scheduler struct {
	kv     store.KV
	syncer Syncer
	clock  store.Clock
	params *Params
	logger *slog.Logger
}

// NewScheduler creates a Scheduler backed by the given local store and
// sync writer. A nil params uses the defaults; a nil clock uses the
// system clock; a nil logger uses the default logger.
func NewScheduler(kv store.KV, syncer Syncer, clock store.Clock, params *Params, logger *slog.Logger) *Scheduler {
	if kv == nil {
		panic("kv cannot be nil")
	}
	if syncer == nil {
		panic("syncer cannot be nil")
	}
	if clock == nil {
		clock = store.SystemClock{}
	}
	if params == nil {
		params = NewDefaultParams()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		kv:     kv,
		syncer: syncer,
		clock:  clock,
		params: params,
		logger: logger.With(slog.String("component", "srs_scheduler")),
	}
}

// RecordAttempt records one attempt outcome for the card identified by
// (day, sentenceID), creating the card on first use. The updated card is
// persisted locally and scheduled for sync, then returned.
func (s *Scheduler) RecordAttempt(ctx context.Context, day int, sentenceID string, correct bool) domain.ReviewCard {
	now := s.clock.Now()

	card, ok := s.loadCard(store.CardKey(day, sentenceID))
	if !ok {
		card = domain.NewReviewCard(day, sentenceID, now)
	}

	next := calculateNextCard(card, correct, now, s.params)

	key := store.CardKey(day, sentenceID)
	s.kv.Set(key, next)
	s.syncer.Write(ctx, domain.OpCard, key, next)

	s.logger.Debug("recorded attempt",
		"day", day,
		"sentence_id", sentenceID,
		"correct", correct,
		"ease", next.Ease,
		"interval", next.Interval)

	return next
}

// Card returns the stored card for (day, sentenceID).
// Returns store.ErrCardNotFound if no attempt has ever been recorded.
func (s *Scheduler) Card(day int, sentenceID string) (domain.ReviewCard, error) {
	card, ok := s.loadCard(store.CardKey(day, sentenceID))
	if !ok {
		return domain.ReviewCard{}, store.ErrCardNotFound
	}
	return card, nil
}

// AllCards returns every stored card, sorted by (day, sentence ID).
func (s *Scheduler) AllCards() []domain.ReviewCard {
	keys := s.kv.Keys(store.CardKeyPrefix())
	cards := make([]domain.ReviewCard, 0, len(keys))
	for _, key := range keys {
		if card, ok := s.loadCard(key); ok {
			cards = append(cards, card)
		}
	}

	sort.Slice(cards, func(i, j int) bool {
		if cards[i].Day != cards[j].Day {
			return cards[i].Day < cards[j].Day
		}
		return cards[i].SentenceID < cards[j].SentenceID
	})
	return cards
}

// DueCards returns every card due now, sorted ascending by ease so review
// sessions front-load the historically hardest material. A positive limit
// caps the result length.
func (s *Scheduler) DueCards(limit int) []domain.ReviewCard {
	now := s.clock.Now()

	due := make([]domain.ReviewCard, 0)
	for _, card := range s.AllCards() {
		if card.Due(now) {
			due = append(due, card)
		}
	}

	// AllCards returns a deterministic order, and sort.SliceStable keeps
	// it for equal-ease cards.
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].Ease < due[j].Ease
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due
}

// PostponeCard pushes a card's next review forward by the given number of
// days without recording an attempt.
// Returns store.ErrCardNotFound if the card does not exist.
func (s *Scheduler) PostponeCard(ctx context.Context, day int, sentenceID string, days int) (domain.ReviewCard, error) {
	if days < 1 {
		return domain.ReviewCard{}, ErrInvalidDays
	}

	key := store.CardKey(day, sentenceID)
	card, ok := s.loadCard(key)
	if !ok {
		return domain.ReviewCard{}, store.ErrCardNotFound
	}

	next := card.Clone()
	next.NextReviewAt = card.NextReviewAt.Add(time.Duration(days) * 24 * time.Hour)

	s.kv.Set(key, next)
	s.syncer.Write(ctx, domain.OpCard, key, next)
	return next, nil
}

// Stats summarizes the stored card population for host UI.
type Stats struct {
	Cards     int `json:"cards"`
	Attempts  int `json:"attempts"`
	Successes int `json:"successes"`
	Due       int `json:"due"`
}

// Stats returns aggregate counters over all stored cards.
func (s *Scheduler) Stats() Stats {
	now := s.clock.Now()

	var st Stats
	for _, card := range s.AllCards() {
		st.Cards++
		st.Attempts += card.Attempts
		st.Successes += card.Successes
		if card.Due(now) {
			st.Due++
		}
	}
	return st
}

// loadCard reads and decodes one card from the local store. A record that
// fails to decode is treated as absent and logged; the next attempt will
// recreate the card rather than wedge the scheduler.
func (s *Scheduler) loadCard(key string) (domain.ReviewCard, bool) {
	raw, ok := s.kv.Get(key)
	if !ok {
		return domain.ReviewCard{}, false
	}

	var card domain.ReviewCard
	if err := json.Unmarshal(raw, &card); err != nil {
		s.logger.Warn("discarding undecodable card record",
			"key", key,
			"error", err)
		return domain.ReviewCard{}, false
	}
	return card, true
}
