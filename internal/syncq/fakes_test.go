package syncq

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/parlo-app/parlo/internal/domain"
	"github.com/parlo-app/parlo/internal/store"
)

var errRemoteDown = errors.New("remote unreachable")

// staticAuth reports a fixed account id, or none.
type staticAuth struct {
	id string
}

func (a staticAuth) UserID() (string, bool) { return a.id, a.id != "" }
func (a staticAuth) SessionActive() bool    { _, ok := a.UserID(); return ok }

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

// fakeRemote is an in-memory RemoteStore whose failures are scriptable
// per record key.
type fakeRemote struct {
	mu        sync.Mutex
	down      bool
	failKeys  map[string]bool
	progress  map[string]domain.Progress
	cards     map[string]map[string]domain.ReviewCard
	completed map[string]domain.CompletedLessons
	exams     map[string]map[int]domain.ExamResult
	upserts   int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		failKeys:  make(map[string]bool),
		progress:  make(map[string]domain.Progress),
		cards:     make(map[string]map[string]domain.ReviewCard),
		completed: make(map[string]domain.CompletedLessons),
		exams:     make(map[string]map[int]domain.ExamResult),
	}
}

func (r *fakeRemote) setDown(down bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.down = down
}

func (r *fakeRemote) failKey(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failKeys[key] = true
}

func (r *fakeRemote) check(key string) error {
	if r.down || r.failKeys[key] {
		return errRemoteDown
	}
	return nil
}

func (r *fakeRemote) upsertCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upserts
}

func (r *fakeRemote) UpsertProgress(_ context.Context, accountID string, p domain.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(store.ProgressKey()); err != nil {
		return err
	}
	r.progress[accountID] = p
	r.upserts++
	return nil
}

func (r *fakeRemote) SelectProgress(_ context.Context, accountID string) (*domain.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(store.ProgressKey()); err != nil {
		return nil, err
	}
	p, ok := r.progress[accountID]
	if !ok {
		return nil, store.ErrProgressNotFound
	}
	return &p, nil
}

func (r *fakeRemote) UpsertCard(_ context.Context, accountID string, c domain.ReviewCard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := store.CardKey(c.Day, c.SentenceID)
	if err := r.check(key); err != nil {
		return err
	}
	if r.cards[accountID] == nil {
		r.cards[accountID] = make(map[string]domain.ReviewCard)
	}
	r.cards[accountID][key] = c
	r.upserts++
	return nil
}

func (r *fakeRemote) SelectCards(_ context.Context, accountID string) ([]domain.ReviewCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, errRemoteDown
	}
	out := make([]domain.ReviewCard, 0, len(r.cards[accountID]))
	for _, c := range r.cards[accountID] {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeRemote) UpsertCompletedLesson(_ context.Context, accountID string, day int, cl domain.CompletedLesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(store.CompletedLessonsKey()); err != nil {
		return err
	}
	if r.completed[accountID] == nil {
		r.completed[accountID] = make(domain.CompletedLessons)
	}
	r.completed[accountID][day] = cl
	r.upserts++
	return nil
}

func (r *fakeRemote) SelectCompletedLessons(_ context.Context, accountID string) (domain.CompletedLessons, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, errRemoteDown
	}
	return r.completed[accountID].Clone(), nil
}

func (r *fakeRemote) UpsertExamResult(_ context.Context, accountID string, res domain.ExamResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(store.ExamKey(res.Week)); err != nil {
		return err
	}
	if r.exams[accountID] == nil {
		r.exams[accountID] = make(map[int]domain.ExamResult)
	}
	r.exams[accountID][res.Week] = res
	r.upserts++
	return nil
}

func (r *fakeRemote) SelectExamResults(_ context.Context, accountID string) ([]domain.ExamResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, errRemoteDown
	}
	out := make([]domain.ExamResult, 0, len(r.exams[accountID]))
	for _, res := range r.exams[accountID] {
		out = append(out, res)
	}
	return out, nil
}

var _ store.RemoteStore = (*fakeRemote)(nil)

// memQueueStore is an in-memory QueueStore preserving enqueue order.
type memQueueStore struct {
	mu    sync.Mutex
	order []string
	ops   map[string]domain.SyncOperation
}

func newMemQueueStore() *memQueueStore {
	return &memQueueStore{ops: make(map[string]domain.SyncOperation)}
}

var _ store.QueueStore = (*memQueueStore)(nil)

func (s *memQueueStore) SaveOperation(op domain.SyncOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := op.DedupeKey()
	if existing, ok := s.ops[key]; ok {
		// Replace in place: queue position and creation time kept.
		op.CreatedAt = existing.CreatedAt
		op.Retries = 0
		s.ops[key] = op
		return nil
	}
	s.order = append(s.order, key)
	s.ops[key] = op
	return nil
}

func (s *memQueueStore) SetRetries(dedupeKey string, retries int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.ops[dedupeKey]
	if !ok {
		return store.ErrNotFound
	}
	op.Retries = retries
	s.ops[dedupeKey] = op
	return nil
}

func (s *memQueueStore) DeleteOperation(dedupeKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ops[dedupeKey]; !ok {
		return nil
	}
	delete(s.ops, dedupeKey)
	for i, k := range s.order {
		if k == dedupeKey {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memQueueStore) ListOperations() ([]domain.SyncOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SyncOperation, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.ops[k])
	}
	return out, nil
}

func (s *memQueueStore) ClearOperations() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.ops = make(map[string]domain.SyncOperation)
	return nil
}
