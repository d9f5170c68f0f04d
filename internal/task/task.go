// Package task holds the Task entity, its transfer representation, the
// repository port, and the service and HTTP handlers built on them.
package task

import (
	"context"
	"errors"
	"time"
)

// Task is the persisted form of a task.
// ID is zero until the task has been saved for the first time.
type Task struct {
	ID          int64
	Title       string
	Description *string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ErrNotFound is returned by a Repository when no task has the requested id.
var ErrNotFound = errors.New("task not found")

// Filter narrows FindAll. The zero Filter matches every task.
type Filter struct {
	Completed *bool
}

// Match reports whether t passes the filter.
func (f Filter) Match(t Task) bool {
	if f.Completed != nil && *f.Completed != t.Completed {
		return false
	}
	return true
}

// Repository persists tasks keyed by id.
//
// Implementations return tasks in ascending id order, assign ID and both
// timestamps on insert, and refresh UpdatedAt on update.
type Repository interface {
	FindAll(ctx context.Context, f Filter) ([]Task, error)
	// FindByID returns ErrNotFound when no task has the id.
	FindByID(ctx context.Context, id int64) (Task, error)
	// Save inserts t when t.ID is zero and updates it otherwise.
	// Updating an id that does not exist returns ErrNotFound.
	Save(ctx context.Context, t *Task) error
	ExistsByID(ctx context.Context, id int64) (bool, error)
	// DeleteByID returns ErrNotFound when no task has the id.
	DeleteByID(ctx context.Context, id int64) error
	// Ping checks that the backing storage is reachable.
	Ping(ctx context.Context) error
}
