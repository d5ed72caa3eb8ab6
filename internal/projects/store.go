package projects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type DBTX interface {
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

const projectCols = `project_id, project_ulid, name, description, owner_id, status, created_at, updated_at`
const taskCols = `task_id, task_ulid, project_id, assignee_id, title, status, due_on, created_at, updated_at`

// ===== projects =====

func (s *Store) InsertProject(ctx context.Context, p *Project) error {
	const q = `
	INSERT INTO projects (project_ulid, name, description, owner_id, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, NOW(6), NOW(6))`
	res, err := s.db.ExecContext(ctx, q, p.ProjectULID, p.Name, p.Description, p.OwnerID, p.Status)
	if err != nil {
		return err
	}
	p.ProjectID, err = res.LastInsertId()
	return err
}

func (s *Store) GetProjectByULID(ctx context.Context, ulid string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT `+projectCols+`
	FROM projects
	WHERE project_ulid = ?
	LIMIT 1`, ulid)

	var p Project
	err := row.Scan(&p.ProjectID, &p.ProjectULID, &p.Name, &p.Description,
		&p.OwnerID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context, status string, page Page) ([]Project, int64, error) {
	where := ""
	var args []any
	if status != "" {
		where = " WHERE status = ?"
		args = append(args, status)
	}

	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	q := `SELECT ` + projectCols + ` FROM projects` + where +
		fmt.Sprintf(" ORDER BY project_id DESC LIMIT %d OFFSET %d", limit, page.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ProjectID, &p.ProjectULID, &p.Name, &p.Description,
			&p.OwnerID, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) UpdateProject(ctx context.Context, p *Project) error {
	const q = `
	UPDATE projects
	SET name = ?, description = ?, owner_id = ?, status = ?, updated_at = NOW(6)
	WHERE project_id = ?`
	_, err := s.db.ExecContext(ctx, q, p.Name, p.Description, p.OwnerID, p.Status, p.ProjectID)
	return err
}

// ===== tasks =====

func (s *Store) InsertTask(ctx context.Context, t *Task) error {
	const q = `
	INSERT INTO tasks (task_ulid, project_id, assignee_id, title, status, due_on, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, NOW(6), NOW(6))`
	res, err := s.db.ExecContext(ctx, q, t.TaskULID, t.ProjectID, t.AssigneeID, t.Title, t.Status, t.DueOn)
	if err != nil {
		return err
	}
	t.TaskID, err = res.LastInsertId()
	return err
}

func (s *Store) GetTaskByULID(ctx context.Context, ulid string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT `+taskCols+`
	FROM tasks
	WHERE task_ulid = ?
	LIMIT 1`, ulid)

	var t Task
	err := row.Scan(&t.TaskID, &t.TaskULID, &t.ProjectID, &t.AssigneeID,
		&t.Title, &t.Status, &t.DueOn, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTasksByProject(ctx context.Context, projectID int64, page Page) ([]Task, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	q := `SELECT ` + taskCols + ` FROM tasks WHERE project_id = ?` +
		fmt.Sprintf(" ORDER BY task_id ASC LIMIT %d OFFSET %d", limit, page.Offset)

	rows, err := s.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.TaskID, &t.TaskULID, &t.ProjectID, &t.AssigneeID,
			&t.Title, &t.Status, &t.DueOn, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTask(ctx context.Context, t *Task) error {
	const q = `
	UPDATE tasks
	SET assignee_id = ?, title = ?, status = ?, due_on = ?, updated_at = NOW(6)
	WHERE task_id = ?`
	_, err := s.db.ExecContext(ctx, q, t.AssigneeID, t.Title, t.Status, t.DueOn, t.TaskID)
	return err
}

// ResolveProjectULID: task行のproject_idからULIDを引く（レスポンス組み立て用）
func (s *Store) ResolveProjectULID(ctx context.Context, projectID int64) (string, error) {
	var u string
	err := s.db.QueryRowContext(ctx,
		`SELECT project_ulid FROM projects WHERE project_id = ?`, projectID).Scan(&u)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return u, err
}
