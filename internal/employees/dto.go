package employees

import "time"

const (
	DateLayout       = "2006-01-02"
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// ===== Requests =====

type CreateEmployeeRequest struct {
	Name       string  `json:"name" binding:"required"`
	Email      string  `json:"email" binding:"required"`
	Department *string `json:"department,omitempty"`
	Position   *string `json:"position,omitempty"`
	JoinedOn   *string `json:"joined_on,omitempty"` // YYYY-MM-DD
}

type UpdateEmployeeRequest struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Department *string `json:"department,omitempty"`
	Position   *string `json:"position,omitempty"`
	JoinedOn   *string `json:"joined_on,omitempty"`
}

type ListQuery struct {
	Department *string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// ===== Responses =====

type EmployeeResponse struct {
	EmployeeID string    `json:"employee_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Department *string   `json:"department,omitempty"`
	Position   *string   `json:"position,omitempty"`
	JoinedOn   *string   `json:"joined_on,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}
