package departments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
)

// ===== Error model =====
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

type Service struct {
	store *Store
}

func NewService(db *sql.DB) *Service { return &Service{store: NewStore(db)} }

func parseBoolish(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "1" || s == "true" || s == "yes" || s == "all"
}

func normalizeCode(code string) (string, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return "", ErrInvalid("code is required")
	}
	return code, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalid("name is required")
	}
	return name, nil
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}

func (s *Service) List(ctx context.Context, all string) ([]Department, error) {
	return s.store.List(ctx, parseBoolish(all))
}

func (s *Service) Get(ctx context.Context, id uint) (*Department, error) {
	d, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound("department not found")
		}
		return nil, ErrInternal("failed to get department")
	}
	return d, nil
}

func (s *Service) Create(ctx context.Context, name, code string) (*Department, error) {
	n, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	c, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	d, err := s.store.Create(ctx, n, c)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrConflict("department code already exists")
		}
		return nil, ErrInternal("failed to create department")
	}
	return d, nil
}

func (s *Service) Update(ctx context.Context, id uint, name, code string, disabled bool) (*Department, error) {
	n, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	c, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, id, n, c, disabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound("department not found")
		}
		if isDuplicateKey(err) {
			return nil, ErrConflict("department code already exists")
		}
		return nil, ErrInternal("failed to update department")
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.store.Disable(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound("department not found")
		}
		return ErrInternal("failed to delete department")
	}
	return nil
}
