package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"

	tokenTTL = 24 * time.Hour
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrAuthFailed    = errors.New("authentication failed")
)

type Service struct {
	store  AccountStore
	secret []byte
}

// NewService: 署名鍵は設定から渡す（コードへの埋め込み禁止）
func NewService(db *sql.DB, secret []byte) *Service {
	return &Service{store: NewStore(db), secret: secret}
}

// Login: employee_id + パスワードで検証し、sub/role入りのHS256トークンを返す
func (s *Service) Login(ctx context.Context, employeeID, password string) (string, error) {
	acct, err := s.store.GetByEmployeeID(ctx, employeeID)
	if err != nil {
		return "", err
	}
	if acct == nil || acct.IsDisabled {
		// 存在しない/無効化済みは同じ失敗メッセージに落とす
		return "", ErrAuthFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", ErrAuthFailed
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  acct.EmployeeID,
		"role": acct.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	})
	return token.SignedString(s.secret)
}

// Register: 既存従業員に対するアカウント発行
func (s *Service) Register(ctx context.Context, employeeID, password, role string) error {
	if role != RoleAdmin && role != RoleEmployee {
		return errors.New("role must be admin or employee")
	}
	exists, err := s.store.GetByEmployeeID(ctx, employeeID)
	if err != nil {
		return err
	}
	if exists != nil {
		return ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.store.Create(ctx, &Account{
		EmployeeID:   employeeID,
		PasswordHash: string(hash),
		Role:         role,
	})
}

func (s *Service) ChangePassword(ctx context.Context, employeeID, oldPassword, newPassword string) error {
	acct, err := s.store.GetByEmployeeID(ctx, employeeID)
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrAuthFailed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	n, err := s.store.UpdatePassword(ctx, employeeID, string(hash))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Disable: アカウント停止（退職処理とセットで呼ぶ）
func (s *Service) Disable(ctx context.Context, employeeID string) error {
	n, err := s.store.SetDisabled(ctx, employeeID, true)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
