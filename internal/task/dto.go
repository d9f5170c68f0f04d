package task

import "time"

// DTO is the representation of a task exchanged with API clients.
//
// ID is nil in creation requests and ignored if supplied. CreatedAt and
// UpdatedAt are output only.
type DTO struct {
	ID          *int64     `json:"id"`
	Title       string     `json:"title" validate:"notblank,max=100"`
	Description *string    `json:"description" validate:"omitempty,max=500"`
	Completed   bool       `json:"completed"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// ToDTO converts a stored task into its transfer representation.
func ToDTO(t Task) DTO {
	d := DTO{
		Title:       t.Title,
		Description: cloneString(t.Description),
		Completed:   t.Completed,
	}
	if t.ID != 0 {
		id := t.ID
		d.ID = &id
	}
	if !t.CreatedAt.IsZero() {
		created := t.CreatedAt
		d.CreatedAt = &created
	}
	if !t.UpdatedAt.IsZero() {
		updated := t.UpdatedAt
		d.UpdatedAt = &updated
	}
	return d
}

// ToEntity converts a transfer representation into an unsaved task.
// The id and timestamps are dropped; storage owns them.
func ToEntity(d DTO) Task {
	return Task{
		Title:       d.Title,
		Description: cloneString(d.Description),
		Completed:   d.Completed,
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// ToDTOs maps a slice of tasks. The result is never nil.
func ToDTOs(tasks []Task) []DTO {
	out := make([]DTO, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ToDTO(t))
	}
	return out
}
