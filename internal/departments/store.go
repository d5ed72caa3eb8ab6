package departments

import (
	"context"
	"database/sql"

	"EMS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// GET /departments?all=1
func (s *Store) List(ctx context.Context, includeDisabled bool) ([]Department, error) {
	q := `
		SELECT department_id, name, code, is_disabled
		FROM departments
	`
	if !includeDisabled {
		q += ` WHERE is_disabled = 0`
	}
	q += ` ORDER BY department_id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]Department, 0, 16)
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.DepartmentID, &d.Name, &d.Code, &d.IsDisabled); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) GetByID(ctx context.Context, id uint) (*Department, error) {
	const q = `
		SELECT department_id, name, code, is_disabled
		FROM departments
		WHERE department_id = ?
	`
	var d Department
	err := s.db.QueryRowContext(ctx, q, id).Scan(&d.DepartmentID, &d.Name, &d.Code, &d.IsDisabled)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) Create(ctx context.Context, name, code string) (*Department, error) {
	const q = `
		INSERT INTO departments (name, code, is_disabled)
		VALUES (?, ?, 0)
	`
	r, err := s.db.ExecContext(ctx, q, name, code)
	if err != nil {
		return nil, err
	}
	lastID, err := r.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Department{DepartmentID: uint(lastID), Name: name, Code: code}, nil
}

// Update: 部署名の変更は employees.department の表示名にも波及させる。
// 2テーブル更新なのでトランザクションで行う。
func (s *Store) Update(ctx context.Context, id uint, name, code string, disabled bool) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var oldName string
		err := tx.QueryRowContext(ctx,
			`SELECT name FROM departments WHERE department_id = ? FOR UPDATE`, id).Scan(&oldName)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE departments
			SET name = ?, code = ?, is_disabled = ?
			WHERE department_id = ?`, name, code, disabled, id)
		if err != nil {
			return err
		}
		if aff, _ := res.RowsAffected(); aff == 0 && oldName == name {
			// name/code/フラグ全て同値。変更なしは成功扱い
			return nil
		}

		if oldName != name {
			_, err = tx.ExecContext(ctx,
				`UPDATE employees SET department = ? WHERE department = ?`, name, oldName)
		}
		return err
	})
}

// DELETE: is_disabled=1 にする（物理削除しない）
func (s *Store) Disable(ctx context.Context, id uint) error {
	const q = `
		UPDATE departments
		SET is_disabled = 1
		WHERE department_id = ?
	`
	r, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	aff, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}
