package employees

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ===== Error model (attendance/projects と同型) =====
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
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

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
	store EmployeeStore
	id    IDGen
}

func NewService(db *sql.DB) *Service {
	return &Service{store: NewStore(db), id: ulidGen{}}
}

// POST /employees
func (s *Service) Create(ctx context.Context, req CreateEmployeeRequest) (*EmployeeResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalid("name is required")
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	id, err := s.id.New()
	if err != nil {
		return nil, err
	}
	e := &Employee{
		EmployeeID: id,
		Name:       name,
		Email:      email,
		IsActive:   true,
	}
	setNullString(&e.Department, req.Department)
	setNullString(&e.Position, req.Position)
	if req.JoinedOn != nil && *req.JoinedOn != "" {
		d, err := time.ParseInLocation(DateLayout, *req.JoinedOn, time.UTC)
		if err != nil {
			return nil, ErrInvalid("joined_on must be YYYY-MM-DD")
		}
		e.JoinedOn = sql.NullTime{Time: d, Valid: true}
	}

	if err := s.store.Insert(ctx, e); err != nil {
		return nil, err
	}
	resp := e.toDTO()
	return &resp, nil
}

// GET /employees/:employee_id
func (s *Service) Get(ctx context.Context, id string) (*EmployeeResponse, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound("employee not found")
	}
	resp := e.toDTO()
	return &resp, nil
}

// GET /employees
func (s *Service) List(ctx context.Context, q ListQuery) ([]EmployeeResponse, int64, error) {
	list, total, err := s.store.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	out := make([]EmployeeResponse, 0, len(list))
	for i := range list {
		out = append(out, list[i].toDTO())
	}
	return out, total, nil
}

// PUT /employees/:employee_id
func (s *Service) Update(ctx context.Context, id string, req UpdateEmployeeRequest) (*EmployeeResponse, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound("employee not found")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrInvalid("name must not be empty")
		}
		e.Name = name
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return nil, err
		}
		e.Email = email
	}
	if req.Department != nil {
		setNullString(&e.Department, req.Department)
	}
	if req.Position != nil {
		setNullString(&e.Position, req.Position)
	}
	if req.JoinedOn != nil {
		if *req.JoinedOn == "" {
			e.JoinedOn = sql.NullTime{}
		} else {
			d, err := time.ParseInLocation(DateLayout, *req.JoinedOn, time.UTC)
			if err != nil {
				return nil, ErrInvalid("joined_on must be YYYY-MM-DD")
			}
			e.JoinedOn = sql.NullTime{Time: d, Valid: true}
		}
	}

	if err := s.store.Update(ctx, e); err != nil {
		return nil, err
	}
	resp := e.toDTO()
	return &resp, nil
}

// DELETE /employees/:employee_id（物理削除はしない。退職処理=無効化）
func (s *Service) Deactivate(ctx context.Context, id string) error {
	n, err := s.store.SetActive(ctx, id, false)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound("employee not found")
	}
	return nil
}

// ===== helpers =====

func normalizeEmail(v string) (string, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return "", ErrInvalid("email is required")
	}
	if _, err := mail.ParseAddress(v); err != nil {
		return "", ErrInvalid("email format is invalid")
	}
	return v, nil
}

func setNullString(dst *sql.NullString, v *string) {
	if v == nil || strings.TrimSpace(*v) == "" {
		*dst = sql.NullString{}
		return
	}
	*dst = sql.NullString{String: strings.TrimSpace(*v), Valid: true}
}
