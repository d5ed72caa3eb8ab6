package projects

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ===== Error model (attendance/employees と同型) =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		case CodeConflict:
			return 409
		default:
			return 500
		}
	}
	return 500
}

// ===== Service =====

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

type Service struct {
	store *Store
	id    IDGen
}

func NewService(db *sql.DB) *Service {
	return &Service{store: NewStore(db), id: ulidGen{}}
}

// POST /projects
func (s *Service) CreateProject(ctx context.Context, req CreateProjectRequest) (*ProjectResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalid("name is required")
	}
	if req.OwnerID == "" {
		return nil, ErrInvalid("owner_id is required")
	}

	id, err := s.id.New()
	if err != nil {
		return nil, err
	}
	p := &Project{
		ProjectULID: id,
		Name:        name,
		OwnerID:     req.OwnerID,
		Status:      ProjectStatusOpen,
	}
	if req.Description != nil && *req.Description != "" {
		p.Description = sql.NullString{String: *req.Description, Valid: true}
	}

	if err := s.store.InsertProject(ctx, p); err != nil {
		return nil, err
	}
	resp := p.toDTO()
	return &resp, nil
}

// GET /projects/:project_ulid
func (s *Service) GetProject(ctx context.Context, ulid string) (*ProjectResponse, error) {
	p, err := s.store.GetProjectByULID(ctx, ulid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound("project not found")
	}
	resp := p.toDTO()
	return &resp, nil
}

// GET /projects
func (s *Service) ListProjects(ctx context.Context, status string, page Page) ([]ProjectResponse, int64, error) {
	if status != "" && status != ProjectStatusOpen && status != ProjectStatusArchived {
		return nil, 0, ErrInvalid("status must be 'open' or 'archived'")
	}
	list, total, err := s.store.ListProjects(ctx, status, page)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ProjectResponse, 0, len(list))
	for i := range list {
		out = append(out, list[i].toDTO())
	}
	return out, total, nil
}

// PUT /projects/:project_ulid
func (s *Service) UpdateProject(ctx context.Context, ulid string, req UpdateProjectRequest) (*ProjectResponse, error) {
	p, err := s.store.GetProjectByULID(ctx, ulid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound("project not found")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrInvalid("name must not be empty")
		}
		p.Name = name
	}
	if req.Description != nil {
		if *req.Description == "" {
			p.Description = sql.NullString{}
		} else {
			p.Description = sql.NullString{String: *req.Description, Valid: true}
		}
	}
	if req.OwnerID != nil && *req.OwnerID != "" {
		p.OwnerID = *req.OwnerID
	}
	if req.Status != nil {
		if *req.Status != ProjectStatusOpen && *req.Status != ProjectStatusArchived {
			return nil, ErrInvalid("status must be 'open' or 'archived'")
		}
		p.Status = *req.Status
	}

	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, err
	}
	resp := p.toDTO()
	return &resp, nil
}

// POST /projects/:project_ulid/tasks
func (s *Service) CreateTask(ctx context.Context, projectULID string, req CreateTaskRequest) (*TaskResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrInvalid("title is required")
	}

	p, err := s.store.GetProjectByULID(ctx, projectULID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound("project not found")
	}
	if p.Status == ProjectStatusArchived {
		return nil, ErrConflict("project is archived")
	}

	id, err := s.id.New()
	if err != nil {
		return nil, err
	}
	t := &Task{
		TaskULID:  id,
		ProjectID: p.ProjectID,
		Title:     title,
		Status:    TaskStatusTodo,
	}
	if req.AssigneeID != nil && *req.AssigneeID != "" {
		t.AssigneeID = sql.NullString{String: *req.AssigneeID, Valid: true}
	}
	if req.DueOn != nil && *req.DueOn != "" {
		d, err := time.ParseInLocation(DateLayout, *req.DueOn, time.UTC)
		if err != nil {
			return nil, ErrInvalid("due_on must be YYYY-MM-DD")
		}
		t.DueOn = sql.NullTime{Time: d, Valid: true}
	}

	if err := s.store.InsertTask(ctx, t); err != nil {
		return nil, err
	}
	resp := t.toDTO(p.ProjectULID)
	return &resp, nil
}

// GET /projects/:project_ulid/tasks
func (s *Service) ListTasks(ctx context.Context, projectULID string, page Page) ([]TaskResponse, error) {
	p, err := s.store.GetProjectByULID(ctx, projectULID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound("project not found")
	}

	tasks, err := s.store.ListTasksByProject(ctx, p.ProjectID, page)
	if err != nil {
		return nil, err
	}
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, tasks[i].toDTO(p.ProjectULID))
	}
	return out, nil
}

// PATCH /tasks/:task_ulid
func (s *Service) UpdateTask(ctx context.Context, taskULID string, req UpdateTaskRequest) (*TaskResponse, error) {
	t, err := s.store.GetTaskByULID(ctx, taskULID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound("task not found")
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrInvalid("title must not be empty")
		}
		t.Title = title
	}
	if req.AssigneeID != nil {
		if *req.AssigneeID == "" {
			t.AssigneeID = sql.NullString{}
		} else {
			t.AssigneeID = sql.NullString{String: *req.AssigneeID, Valid: true}
		}
	}
	if req.Status != nil {
		switch *req.Status {
		case TaskStatusTodo, TaskStatusDoing, TaskStatusDone:
			t.Status = *req.Status
		default:
			return nil, ErrInvalid("status must be todo, doing or done")
		}
	}
	if req.DueOn != nil {
		if *req.DueOn == "" {
			t.DueOn = sql.NullTime{}
		} else {
			d, err := time.ParseInLocation(DateLayout, *req.DueOn, time.UTC)
			if err != nil {
				return nil, ErrInvalid("due_on must be YYYY-MM-DD")
			}
			t.DueOn = sql.NullTime{Time: d, Valid: true}
		}
	}

	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, err
	}

	projectULID, err := s.store.ResolveProjectULID(ctx, t.ProjectID)
	if err != nil {
		return nil, err
	}
	resp := t.toDTO(projectULID)
	return &resp, nil
}

// GET /tasks/:task_ulid
func (s *Service) GetTask(ctx context.Context, taskULID string) (*TaskResponse, error) {
	t, err := s.store.GetTaskByULID(ctx, taskULID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound("task not found")
	}
	projectULID, err := s.store.ResolveProjectULID(ctx, t.ProjectID)
	if err != nil {
		return nil, err
	}
	resp := t.toDTO(projectULID)
	return &resp, nil
}
