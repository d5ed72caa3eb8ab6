package projects

import "time"

const (
	DateLayout       = "2006-01-02"
	DefaultPageLimit = 50
	MaxPageLimit     = 200

	ProjectStatusOpen     = "open"
	ProjectStatusArchived = "archived"

	TaskStatusTodo  = "todo"
	TaskStatusDoing = "doing"
	TaskStatusDone  = "done"
)

// ===== Requests =====

type CreateProjectRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
	OwnerID     string  `json:"owner_id" binding:"required"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	OwnerID     *string `json:"owner_id,omitempty"`
	Status      *string `json:"status,omitempty"` // open | archived
}

type CreateTaskRequest struct {
	Title      string  `json:"title" binding:"required"`
	AssigneeID *string `json:"assignee_id,omitempty"`
	DueOn      *string `json:"due_on,omitempty"` // YYYY-MM-DD
}

type UpdateTaskRequest struct {
	Title      *string `json:"title,omitempty"`
	AssigneeID *string `json:"assignee_id,omitempty"`
	Status     *string `json:"status,omitempty"` // todo | doing | done
	DueOn      *string `json:"due_on,omitempty"`
}

type Page struct {
	Limit  int
	Offset int
}

// ===== Responses =====

type ProjectResponse struct {
	ProjectULID string    `json:"project_ulid"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type TaskResponse struct {
	TaskULID    string    `json:"task_ulid"`
	ProjectULID string    `json:"project_ulid"`
	Title       string    `json:"title"`
	AssigneeID  *string   `json:"assignee_id,omitempty"`
	Status      string    `json:"status"`
	DueOn       *string   `json:"due_on,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
