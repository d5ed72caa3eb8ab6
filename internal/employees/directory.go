package employees

import (
	"context"

	"EMS-backend/internal/attendance"
)

// directory は attendance.Directory の実装。
// 勤怠エンジンには表示用の最小フィールドだけを渡す。
type directory struct{ svc *Service }

func NewDirectory(svc *Service) attendance.Directory {
	return &directory{svc: svc}
}

func (d *directory) Get(ctx context.Context, employeeID string) (*attendance.DirectoryEmployee, error) {
	e, err := d.svc.store.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	return toDirectoryEmployee(e), nil
}

func (d *directory) ListActive(ctx context.Context) ([]attendance.DirectoryEmployee, error) {
	list, _, err := d.svc.store.List(ctx, ListQuery{ActiveOnly: true, Limit: MaxPageLimit})
	if err != nil {
		return nil, err
	}
	out := make([]attendance.DirectoryEmployee, 0, len(list))
	for i := range list {
		out = append(out, *toDirectoryEmployee(&list[i]))
	}
	return out, nil
}

func toDirectoryEmployee(e *Employee) *attendance.DirectoryEmployee {
	de := &attendance.DirectoryEmployee{
		EmployeeID: e.EmployeeID,
		Name:       e.Name,
	}
	if e.Department.Valid {
		de.Department = e.Department.String
	}
	if e.Position.Valid {
		de.Position = e.Position.String
	}
	return de
}
