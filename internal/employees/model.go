package employees

import (
	"database/sql"
	"time"
)

// Employee は employees テーブルの1行
type Employee struct {
	EmployeeID string
	Name       string
	Email      string
	Department sql.NullString
	Position   sql.NullString
	JoinedOn   sql.NullTime // 入社日（DATE）
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (e *Employee) toDTO() EmployeeResponse {
	resp := EmployeeResponse{
		EmployeeID: e.EmployeeID,
		Name:       e.Name,
		Email:      e.Email,
		IsActive:   e.IsActive,
		CreatedAt:  e.CreatedAt,
	}
	if e.Department.Valid {
		v := e.Department.String
		resp.Department = &v
	}
	if e.Position.Valid {
		v := e.Position.String
		resp.Position = &v
	}
	if e.JoinedOn.Valid {
		v := e.JoinedOn.Time.Format(DateLayout)
		resp.JoinedOn = &v
	}
	return resp
}
