package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Service implements the task operations on top of a Repository.
//
// Lookups by id report absence through the ok result rather than an error;
// err is reserved for storage failures.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a Service. If logger is nil, slog.Default() is used.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ListTasks returns every task matching f in storage order.
func (s *Service) ListTasks(ctx context.Context, f Filter) ([]DTO, error) {
	tasks, err := s.repo.FindAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return ToDTOs(tasks), nil
}

// GetTask returns the task with the given id.
func (s *Service) GetTask(ctx context.Context, id int64) (DTO, bool, error) {
	t, ok, err := s.find(ctx, id)
	if !ok || err != nil {
		return DTO{}, ok, err
	}
	return ToDTO(t), true, nil
}

// CreateTask persists a new task built from d. Any id in d is ignored.
func (s *Service) CreateTask(ctx context.Context, d DTO) (DTO, error) {
	t := ToEntity(d)
	if err := s.repo.Save(ctx, &t); err != nil {
		return DTO{}, fmt.Errorf("create task: %w", err)
	}
	s.logger.DebugContext(ctx, "task created", slog.Int64("id", t.ID))
	return ToDTO(t), nil
}

// UpdateTask overwrites the title, description and completed flag of the
// task with the given id.
func (s *Service) UpdateTask(ctx context.Context, id int64, d DTO) (DTO, bool, error) {
	t, ok, err := s.find(ctx, id)
	if !ok || err != nil {
		return DTO{}, ok, err
	}
	t.Title = d.Title
	t.Description = cloneString(d.Description)
	t.Completed = d.Completed
	return s.save(ctx, t, "task updated")
}

// DeleteTask removes the task with the given id and reports whether it existed.
func (s *Service) DeleteTask(ctx context.Context, id int64) (bool, error) {
	exists, err := s.repo.ExistsByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete task %d: %w", id, err)
	}
	if !exists {
		return false, nil
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		// Lost a race with a concurrent delete.
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete task %d: %w", id, err)
	}
	s.logger.DebugContext(ctx, "task deleted", slog.Int64("id", id))
	return true, nil
}

// ToggleTaskCompletion flips the completed flag of the task with the given id.
func (s *Service) ToggleTaskCompletion(ctx context.Context, id int64) (DTO, bool, error) {
	t, ok, err := s.find(ctx, id)
	if !ok || err != nil {
		return DTO{}, ok, err
	}
	t.Completed = !t.Completed
	return s.save(ctx, t, "task toggled")
}

// Ping checks the repository.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) find(ctx context.Context, id int64) (Task, bool, error) {
	t, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Task{}, false, nil
	}
	if err != nil {
		return Task{}, false, fmt.Errorf("find task %d: %w", id, err)
	}
	return t, true, nil
}

func (s *Service) save(ctx context.Context, t Task, msg string) (DTO, bool, error) {
	err := s.repo.Save(ctx, &t)
	if errors.Is(err, ErrNotFound) {
		return DTO{}, false, nil
	}
	if err != nil {
		return DTO{}, false, fmt.Errorf("save task %d: %w", t.ID, err)
	}
	s.logger.DebugContext(ctx, msg, slog.Int64("id", t.ID), slog.Bool("completed", t.Completed))
	return ToDTO(t), true, nil
}
