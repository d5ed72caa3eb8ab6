package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("test-secret")

type memStore struct {
	accts map[string]*Account
}

func newMemStore() *memStore { return &memStore{accts: map[string]*Account{}} }

func (m *memStore) GetByEmployeeID(_ context.Context, id string) (*Account, error) {
	if a, ok := m.accts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) Create(_ context.Context, a *Account) error {
	cp := *a
	m.accts[a.EmployeeID] = &cp
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, id, hash string) (int64, error) {
	a, ok := m.accts[id]
	if !ok {
		return 0, nil
	}
	a.PasswordHash = hash
	return 1, nil
}

func (m *memStore) SetDisabled(_ context.Context, id string, disabled bool) (int64, error) {
	a, ok := m.accts[id]
	if !ok {
		return 0, nil
	}
	a.IsDisabled = disabled
	return 1, nil
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	st := newMemStore()
	return &Service{store: st, secret: testSecret}, st
}

// ===== Service =====

func TestLoginAndTokenClaims(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.Register(ctx, "EMP0001", "initial-pass", RoleEmployee); err != nil {
		t.Fatal(err)
	}

	token, err := svc.Login(ctx, "EMP0001", "initial-pass")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := parseClaims(token, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	if claims["sub"] != "EMP0001" {
		t.Errorf("sub = %v", claims["sub"])
	}
	if claims["role"] != RoleEmployee {
		t.Errorf("role = %v", claims["role"])
	}
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	if err := svc.Register(ctx, "EMP0001", "secret1", RoleEmployee); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Login(ctx, "EMP0001", "wrong"); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := svc.Login(ctx, "EMP9999", "secret1"); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("unknown account: %v", err)
	}

	// 無効化済みアカウントも同じ失敗に落とす
	st.accts["EMP0001"].IsDisabled = true
	if _, err := svc.Login(ctx, "EMP0001", "secret1"); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("disabled account: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.Register(ctx, "EMP0001", "pass", "superuser"); err == nil {
		t.Error("unknown role must be rejected")
	}
	if err := svc.Register(ctx, "EMP0001", "pass", RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if err := svc.Register(ctx, "EMP0001", "pass", RoleAdmin); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate register: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	if err := svc.Register(ctx, "EMP0001", "old-pass", RoleEmployee); err != nil {
		t.Fatal(err)
	}
	if err := svc.ChangePassword(ctx, "EMP0001", "bad", "new-pass"); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("wrong old password: %v", err)
	}
	if err := svc.ChangePassword(ctx, "EMP0001", "old-pass", "new-pass"); err != nil {
		t.Fatal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(st.accts["EMP0001"].PasswordHash), []byte("new-pass")); err != nil {
		t.Error("stored hash must match the new password")
	}
}

// ===== Middleware =====

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func protectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("", RequireAuth(testSecret))
	g.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(CtxUserIDKey)})
	})
	g.GET("/admin", RequireRole(RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doGet(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := protectedRouter()
	now := time.Now()

	valid := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "EMP0001", "role": RoleEmployee,
		"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	}, testSecret)
	expired := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "EMP0001", "role": RoleEmployee,
		"iat": now.Add(-2 * time.Hour).Unix(), "exp": now.Add(-time.Hour).Unix(),
	}, testSecret)
	wrongKey := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "EMP0001", "exp": now.Add(time.Hour).Unix(),
	}, []byte("other-secret"))
	noSub := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": now.Add(time.Hour).Unix(),
	}, testSecret)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized},
		{"missing sub", "Bearer " + noSub, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := doGet(r, "/me", tc.header); w.Code != tc.want {
				t.Errorf("status = %d, want %d (body=%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := protectedRouter()
	now := time.Now()

	employee := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "EMP0001", "role": RoleEmployee,
		"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	}, testSecret)
	admin := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ADMIN01", "role": RoleAdmin,
		"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	}, testSecret)

	if w := doGet(r, "/admin", "Bearer "+employee); w.Code != http.StatusForbidden {
		t.Errorf("employee on admin route: status = %d, want 403", w.Code)
	}
	if w := doGet(r, "/admin", "Bearer "+admin); w.Code != http.StatusOK {
		t.Errorf("admin on admin route: status = %d, want 200", w.Code)
	}
}
