// Package memstore is an in-memory task.Repository.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/broady/taskapi/internal/task"
)

// Store keeps tasks in a map guarded by a mutex. Ids start at 1 and are never reused.
type Store struct {
	mu     sync.RWMutex
	tasks  map[int64]task.Task
	nextID int64
	now    func() time.Time
}

var _ task.Repository = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		tasks:  make(map[int64]task.Task),
		nextID: 1,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) FindAll(ctx context.Context, f task.Filter) ([]task.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if f.Match(t) {
			out = append(out, clone(t))
		}
	}
	slices.SortFunc(out, func(a, b task.Task) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (task.Task, error) {
	if err := ctx.Err(); err != nil {
		return task.Task{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	return clone(t), nil
}

func (s *Store) Save(ctx context.Context, t *task.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if t.ID == 0 {
		t.ID = s.nextID
		s.nextID++
		t.CreatedAt = now
	} else {
		existing, ok := s.tasks[t.ID]
		if !ok {
			return task.ErrNotFound
		}
		t.CreatedAt = existing.CreatedAt
	}
	t.UpdatedAt = now
	s.tasks[t.ID] = clone(*t)
	return nil
}

func (s *Store) ExistsByID(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tasks[id]
	return ok, nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return task.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// clone copies t so callers never share the stored description.
func clone(t task.Task) task.Task {
	if t.Description != nil {
		d := *t.Description
		t.Description = &d
	}
	return t
}
