package employees

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type memStore struct {
	byID    map[string]*Employee
	byEmail map[string]string // email -> employee_id
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]*Employee{}, byEmail: map[string]string{}}
}

func (m *memStore) Insert(_ context.Context, e *Employee) error {
	if _, ok := m.byEmail[e.Email]; ok {
		return ErrConflict("email already registered")
	}
	cp := *e
	m.byID[e.EmployeeID] = &cp
	m.byEmail[e.Email] = e.EmployeeID
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*Employee, error) {
	if e, ok := m.byID[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) List(_ context.Context, q ListQuery) ([]Employee, int64, error) {
	var out []Employee
	for _, e := range m.byID {
		if q.ActiveOnly && !e.IsActive {
			continue
		}
		if q.Department != nil && (!e.Department.Valid || e.Department.String != *q.Department) {
			continue
		}
		out = append(out, *e)
	}
	return out, int64(len(out)), nil
}

func (m *memStore) Update(_ context.Context, e *Employee) error {
	old, ok := m.byID[e.EmployeeID]
	if !ok {
		return nil
	}
	if id, taken := m.byEmail[e.Email]; taken && id != e.EmployeeID {
		return ErrConflict("email already registered")
	}
	delete(m.byEmail, old.Email)
	cp := *e
	m.byID[e.EmployeeID] = &cp
	m.byEmail[e.Email] = e.EmployeeID
	return nil
}

func (m *memStore) SetActive(_ context.Context, id string, active bool) (int64, error) {
	e, ok := m.byID[id]
	if !ok {
		return 0, nil
	}
	e.IsActive = active
	return 1, nil
}

type seqIDGen struct{ n int }

func (g *seqIDGen) New() (string, error) {
	g.n++
	return fmt.Sprintf("EMP%04d", g.n), nil
}

func newTestService() (*Service, *memStore) {
	st := newMemStore()
	return &Service{store: st, id: &seqIDGen{}}, st
}

func strp(s string) *string { return &s }

func wantCode(t *testing.T, err error, code Code) {
	t.Helper()
	var api *APIError
	if !errors.As(err, &api) {
		t.Fatalf("expected APIError(%s), got %v", code, err)
	}
	if api.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, api.Code, api.Message)
	}
}

func TestCreateEmployee(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	resp, err := svc.Create(ctx, CreateEmployeeRequest{
		Name:       "  山田 太郎  ",
		Email:      " Taro.Yamada@Example.COM ",
		Department: strp("開発部"),
		JoinedOn:   strp("2024-04-01"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.EmployeeID != "EMP0001" {
		t.Errorf("employee_id = %s", resp.EmployeeID)
	}
	if resp.Name != "山田 太郎" {
		t.Errorf("name not trimmed: %q", resp.Name)
	}
	if resp.Email != "taro.yamada@example.com" {
		t.Errorf("email not normalized: %q", resp.Email)
	}
	if !resp.IsActive {
		t.Error("new employee must be active")
	}
}

func TestCreateEmployeeValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateEmployeeRequest
	}{
		{"empty name", CreateEmployeeRequest{Name: "  ", Email: "a@example.com"}},
		{"empty email", CreateEmployeeRequest{Name: "A", Email: ""}},
		{"bad email", CreateEmployeeRequest{Name: "A", Email: "not-an-address"}},
		{"bad joined_on", CreateEmployeeRequest{Name: "A", Email: "a@example.com", JoinedOn: strp("04/01/2024")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			wantCode(t, err, CodeInvalidArgument)
		})
	}
}

func TestCreateEmployeeDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateEmployeeRequest{Name: "A", Email: "a@example.com"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Create(ctx, CreateEmployeeRequest{Name: "B", Email: "A@example.com"})
	wantCode(t, err, CodeConflict)
}

func TestUpdateEmployeePartial(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateEmployeeRequest{
		Name: "A", Email: "a@example.com", Department: strp("総務部"),
	})
	if err != nil {
		t.Fatal(err)
	}

	// 名前だけ更新、他フィールドは維持
	resp, err := svc.Update(ctx, created.EmployeeID, UpdateEmployeeRequest{Name: strp("B")})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Name != "B" {
		t.Errorf("name = %q", resp.Name)
	}
	if resp.Department == nil || *resp.Department != "総務部" {
		t.Error("department must be preserved on partial update")
	}

	// 空文字指定はnullクリア
	resp, err = svc.Update(ctx, created.EmployeeID, UpdateEmployeeRequest{Department: strp("")})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Department != nil {
		t.Error("empty department must clear the field")
	}
}

func TestUpdateEmployeeNotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Update(context.Background(), "EMP9999", UpdateEmployeeRequest{Name: strp("X")})
	wantCode(t, err, CodeNotFound)
}

func TestDeactivateEmployee(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateEmployeeRequest{Name: "A", Email: "a@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Deactivate(ctx, created.EmployeeID); err != nil {
		t.Fatal(err)
	}
	if st.byID[created.EmployeeID].IsActive {
		t.Error("employee must be inactive after deactivate")
	}

	err = svc.Deactivate(ctx, "EMP9999")
	wantCode(t, err, CodeNotFound)
}
