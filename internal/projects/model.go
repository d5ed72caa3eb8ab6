package projects

import (
	"database/sql"
	"time"
)

// Project は projects テーブルの1行
type Project struct {
	ProjectID   int64
	ProjectULID string
	Name        string
	Description sql.NullString
	OwnerID     string // employees.employee_id
	Status      string // open | archived
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Task は tasks テーブルの1行
type Task struct {
	TaskID     int64
	TaskULID   string
	ProjectID  int64
	AssigneeID sql.NullString
	Title      string
	Status     string // todo | doing | done
	DueOn      sql.NullTime
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (p *Project) toDTO() ProjectResponse {
	resp := ProjectResponse{
		ProjectULID: p.ProjectULID,
		Name:        p.Name,
		OwnerID:     p.OwnerID,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
	}
	if p.Description.Valid {
		v := p.Description.String
		resp.Description = &v
	}
	return resp
}

func (t *Task) toDTO(projectULID string) TaskResponse {
	resp := TaskResponse{
		TaskULID:    t.TaskULID,
		ProjectULID: projectULID,
		Title:       t.Title,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
	}
	if t.AssigneeID.Valid {
		v := t.AssigneeID.String
		resp.AssigneeID = &v
	}
	if t.DueOn.Valid {
		v := t.DueOn.Time.Format(DateLayout)
		resp.DueOn = &v
	}
	return resp
}
