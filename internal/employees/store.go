package employees

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
)

type DBTX interface {
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

// EmployeeStore: service から見た永続層（テスト差し替え用）
type EmployeeStore interface {
	Insert(ctx context.Context, e *Employee) error
	GetByID(ctx context.Context, id string) (*Employee, error)
	List(ctx context.Context, q ListQuery) ([]Employee, int64, error)
	Update(ctx context.Context, e *Employee) error
	SetActive(ctx context.Context, id string, active bool) (int64, error)
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

const employeeCols = `employee_id, name, email, department, position, joined_on, is_active, created_at, updated_at`

func (s *Store) Insert(ctx context.Context, e *Employee) error {
	const q = `
	INSERT INTO employees (employee_id, name, email, department, position, joined_on, is_active, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, 1, NOW(6), NOW(6))`
	_, err := s.db.ExecContext(ctx, q, e.EmployeeID, e.Name, e.Email, e.Department, e.Position, e.JoinedOn)
	if err != nil && isDuplicateKey(err) {
		return ErrConflict("email already registered")
	}
	return err
}

func (s *Store) GetByID(ctx context.Context, id string) (*Employee, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT `+employeeCols+`
	FROM employees
	WHERE employee_id = ?
	LIMIT 1`, id)

	var e Employee
	err := row.Scan(&e.EmployeeID, &e.Name, &e.Email, &e.Department, &e.Position,
		&e.JoinedOn, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List: 条件に応じて動的WHERE + LIMIT/OFFSET（attendanceのList同型）
func (s *Store) List(ctx context.Context, q ListQuery) ([]Employee, int64, error) {
	var (
		buf    bytes.Buffer
		args   []any
		wheres []string
	)

	buf.WriteString(`SELECT ` + employeeCols + ` FROM employees`)
	if q.Department != nil && *q.Department != "" {
		wheres = append(wheres, "department = ?")
		args = append(args, *q.Department)
	}
	if q.ActiveOnly {
		wheres = append(wheres, "is_active = 1")
	}
	if len(wheres) > 0 {
		buf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	buf.WriteString(" ORDER BY name ASC, employee_id ASC")

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	buf.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, q.Offset))

	rows, err := s.db.QueryContext(ctx, buf.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.EmployeeID, &e.Name, &e.Email, &e.Department, &e.Position,
			&e.JoinedOn, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var cntBuf bytes.Buffer
	cntBuf.WriteString("SELECT COUNT(*) FROM employees")
	if len(wheres) > 0 {
		cntBuf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, cntBuf.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) Update(ctx context.Context, e *Employee) error {
	const q = `
	UPDATE employees
	SET name = ?, email = ?, department = ?, position = ?, joined_on = ?, updated_at = NOW(6)
	WHERE employee_id = ?`
	res, err := s.db.ExecContext(ctx, q, e.Name, e.Email, e.Department, e.Position, e.JoinedOn, e.EmployeeID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict("email already registered")
		}
		return err
	}
	// 変更なし更新も成功扱い（RowsAffected=0は存在チェック済みのため許容）
	_ = res
	return nil
}

func (s *Store) SetActive(ctx context.Context, id string, active bool) (int64, error) {
	const q = `UPDATE employees SET is_active = ?, updated_at = NOW(6) WHERE employee_id = ?`
	res, err := s.db.ExecContext(ctx, q, active, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}
