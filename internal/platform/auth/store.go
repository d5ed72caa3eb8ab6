package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Account は accounts テーブルの1行。employee_id が主キーで employees と1:1。
type Account struct {
	EmployeeID   string
	PasswordHash string
	Role         string // admin | employee
	IsDisabled   bool
	CreatedAt    time.Time
}

type AccountStore interface {
	GetByEmployeeID(ctx context.Context, employeeID string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	UpdatePassword(ctx context.Context, employeeID, hash string) (int64, error)
	SetDisabled(ctx context.Context, employeeID string, disabled bool) (int64, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) AccountStore {
	return &Store{db: db}
}

func (s *Store) GetByEmployeeID(ctx context.Context, employeeID string) (*Account, error) {
	const q = `
	SELECT employee_id, password_hash, role, is_disabled, created_at
	FROM accounts
	WHERE employee_id = ?
	LIMIT 1`
	var a Account
	var disabled int
	err := s.db.QueryRowContext(ctx, q, employeeID).Scan(
		&a.EmployeeID, &a.PasswordHash, &a.Role, &disabled, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.IsDisabled = disabled != 0
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *Account) error {
	const q = `
	INSERT INTO accounts (employee_id, password_hash, role, is_disabled, created_at)
	VALUES (?, ?, ?, 0, NOW(6))`
	_, err := s.db.ExecContext(ctx, q, a.EmployeeID, a.PasswordHash, a.Role)
	return err
}

func (s *Store) UpdatePassword(ctx context.Context, employeeID, hash string) (int64, error) {
	const q = `UPDATE accounts SET password_hash = ? WHERE employee_id = ?`
	res, err := s.db.ExecContext(ctx, q, hash, employeeID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) SetDisabled(ctx context.Context, employeeID string, disabled bool) (int64, error) {
	const q = `UPDATE accounts SET is_disabled = ? WHERE employee_id = ?`
	res, err := s.db.ExecContext(ctx, q, disabled, employeeID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
