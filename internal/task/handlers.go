package task

import (
	"context"
	"errors"
	"log/slog"

	"github.com/broady/taskapi/internal/api"
)

type idParams struct {
	ID int64 `schema:"id" json:"-" validate:"gt=0"`
}

type listParams struct {
	Completed *bool `schema:"completed" json:"-"`
}

type updateRequest struct {
	ID  int64 `schema:"id" json:"-" validate:"gt=0"`
	DTO `schema:"-"`
}

// HealthStatus is the body of a successful health check.
type HealthStatus struct {
	Status string `json:"status"`
}

// Routes registers the task endpoints and a health check on app.
//
//	GET    /tasks              list (optional ?completed=true|false)
//	GET    /tasks/{id}         fetch
//	POST   /tasks              create
//	PUT    /tasks/{id}         replace title, description and completed
//	DELETE /tasks/{id}         delete
//	PATCH  /tasks/{id}/toggle  flip completed
//	GET    /healthz            storage ping
func Routes(app *api.App, svc *Service) {
	h := &handlers{svc: svc}
	app.Get("/tasks", api.NewHandler(h.list))
	app.Get("/tasks/{id}", api.NewHandler(h.get))
	app.Post("/tasks", api.NewHandler(h.create))
	app.Put("/tasks/{id}", api.NewHandler(h.update))
	app.Delete("/tasks/{id}", api.NewHandler(h.delete))
	app.Patch("/tasks/{id}/toggle", api.NewHandler(h.toggle))
	app.Get("/healthz", api.NewHandler(h.health))
}

type handlers struct {
	svc *Service
}

func (h *handlers) list(ctx context.Context, p listParams) ([]DTO, error) {
	return h.svc.ListTasks(ctx, Filter{Completed: p.Completed})
}

func (h *handlers) get(ctx context.Context, p idParams) (DTO, error) {
	d, ok, err := h.svc.GetTask(ctx, p.ID)
	return found(d, ok, err, p.ID)
}

func (h *handlers) create(ctx context.Context, d DTO) (DTO, error) {
	return h.svc.CreateTask(ctx, d)
}

func (h *handlers) update(ctx context.Context, req updateRequest) (DTO, error) {
	d, ok, err := h.svc.UpdateTask(ctx, req.ID, req.DTO)
	return found(d, ok, err, req.ID)
}

func (h *handlers) delete(ctx context.Context, p idParams) (api.Empty, error) {
	ok, err := h.svc.DeleteTask(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound(p.ID)
	}
	return nil, nil
}

func (h *handlers) toggle(ctx context.Context, p idParams) (DTO, error) {
	d, ok, err := h.svc.ToggleTaskCompletion(ctx, p.ID)
	return found(d, ok, err, p.ID)
}

func (h *handlers) health(ctx context.Context, _ struct{}) (HealthStatus, error) {
	if err := h.svc.Ping(ctx); err != nil {
		h.svc.logger.WarnContext(ctx, "health check failed", slog.Any("error", err))
		return HealthStatus{}, api.NewError(api.CodeUnavailable, "storage unavailable")
	}
	return HealthStatus{Status: "ok"}, nil
}

func found(d DTO, ok bool, err error, id int64) (DTO, error) {
	if err != nil {
		return DTO{}, err
	}
	if !ok {
		return DTO{}, notFound(id)
	}
	return d, nil
}

func notFound(id int64) *api.Error {
	return api.Errorf(api.CodeNotFound, "task %d not found", id).WithDetail("id", id)
}

// TransformError maps ErrNotFound escaping a handler to a not_found API
// error. Other errors are left to api.DefaultErrorTransformer.
func TransformError(err error) *api.Error {
	if errors.Is(err, ErrNotFound) {
		return api.NewError(api.CodeNotFound, "task not found")
	}
	return nil
}
