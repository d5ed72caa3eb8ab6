package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	mysql "github.com/go-sql-driver/mysql"
)

type DBTX interface {
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

// RecordStore: service から見た永続層。テスト時はメモリ実装に差し替える。
type RecordStore interface {
	FindActive(ctx context.Context, employeeID string) (*Record, error)
	FindByDate(ctx context.Context, employeeID, workDate string) (*Record, error)
	InsertClockIn(ctx context.Context, rec *Record) error
	UpdateTransition(ctx context.Context, rec *Record, from Status) error
	ListRange(ctx context.Context, employeeID, from, to string) ([]Record, error)
	ListActive(ctx context.Context) ([]Record, error)
	ListByDate(ctx context.Context, workDate string) ([]Record, error)
	Upsert(ctx context.Context, rec *Record) (*Record, error)
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

const selectCols = `
	attendance_id, attendance_ulid, employee_id,
	DATE_FORMAT(work_date, '%Y-%m-%d') AS work_date,
	status, clock_in_at, clock_out_at, active_seconds, last_active_at,
	sessions, breaks, daily_report, created_at, updated_at`

func scanRecord(row interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		r           Record
		sessionsRaw []byte
		breaksRaw   []byte
		clockIn     sql.NullTime
		clockOut    sql.NullTime
		lastActive  sql.NullTime
	)
	err := row.Scan(
		&r.RecordID, &r.RecordULID, &r.EmployeeID, &r.WorkDate,
		&r.Status, &clockIn, &clockOut, &r.ActiveSeconds, &lastActive,
		&sessionsRaw, &breaksRaw, &r.DailyReport, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if !r.Status.valid() {
		return nil, ErrInternal("unknown attendance status: " + string(r.Status))
	}
	if clockIn.Valid {
		t := clockIn.Time.UTC()
		r.ClockInAt = &t
	}
	if clockOut.Valid {
		t := clockOut.Time.UTC()
		r.ClockOutAt = &t
	}
	if lastActive.Valid {
		t := lastActive.Time.UTC()
		r.LastActiveAt = &t
	}
	if r.Sessions, err = unmarshalSegments(sessionsRaw); err != nil {
		return nil, err
	}
	if r.Breaks, err = unmarshalSegments(breaksRaw); err != nil {
		return nil, err
	}
	return &r, nil
}

// FindActive: 日付に関係なく未終了（clocked_in / away）の行を探す。
// 日またぎセッションの解決はここが第一段。見つからなければ nil, nil。
func (s *Store) FindActive(ctx context.Context, employeeID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT `+selectCols+`
	FROM attendance_records
	WHERE employee_id = ? AND status IN ('clocked_in', 'away')
	ORDER BY work_date DESC
	LIMIT 1`, employeeID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (s *Store) FindByDate(ctx context.Context, employeeID, workDate string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT `+selectCols+`
	FROM attendance_records
	WHERE employee_id = ? AND work_date = ?
	LIMIT 1`, employeeID, workDate)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// InsertClockIn: 新規行の条件付きINSERT。
// 未終了行が既にあるユーザには挿入しない（RowsAffected=0 → CONFLICT）。
// (employee_id, work_date) のUNIQUE違反も同時刻の二重打刻とみなす。
func (s *Store) InsertClockIn(ctx context.Context, rec *Record) error {
	sessionsJSON, err := marshalSegments(rec.Sessions)
	if err != nil {
		return err
	}
	breaksJSON, err := marshalSegments(rec.Breaks)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
	INSERT INTO attendance_records
		(attendance_ulid, employee_id, work_date, status, clock_in_at,
		 active_seconds, last_active_at, sessions, breaks, daily_report,
		 created_at, updated_at)
	SELECT ?, ?, ?, ?, ?, 0, ?, ?, ?, '', NOW(6), NOW(6)
	FROM DUAL
	WHERE NOT EXISTS (
		SELECT 1 FROM attendance_records
		WHERE employee_id = ? AND status IN ('clocked_in', 'away')
	)`,
		rec.RecordULID, rec.EmployeeID, rec.WorkDate, rec.Status,
		nullTime(rec.ClockInAt), nullTime(rec.LastActiveAt),
		sessionsJSON, breaksJSON,
		rec.EmployeeID,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict("already clocked in")
		}
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrConflict("already clocked in")
	}

	row := s.db.QueryRowContext(ctx, `
	SELECT attendance_id, created_at, updated_at
	FROM attendance_records
	WHERE employee_id = ? AND work_date = ?`, rec.EmployeeID, rec.WorkDate)
	return row.Scan(&rec.RecordID, &rec.CreatedAt, &rec.UpdatedAt)
}

// UpdateTransition: 状態遷移のCAS書き込み。
// WHERE に遷移前 status を含め、0行更新なら並行リクエストに先を越されている。
func (s *Store) UpdateTransition(ctx context.Context, rec *Record, from Status) error {
	sessionsJSON, err := marshalSegments(rec.Sessions)
	if err != nil {
		return err
	}
	breaksJSON, err := marshalSegments(rec.Breaks)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
	UPDATE attendance_records
	SET status = ?, clock_in_at = ?, clock_out_at = ?, active_seconds = ?,
	    last_active_at = ?, sessions = ?, breaks = ?, daily_report = ?,
	    updated_at = NOW(6)
	WHERE attendance_id = ? AND status = ?`,
		rec.Status, nullTime(rec.ClockInAt), nullTime(rec.ClockOutAt), rec.ActiveSeconds,
		nullTime(rec.LastActiveAt), sessionsJSON, breaksJSON, rec.DailyReport,
		rec.RecordID, from,
	)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrConflict("attendance state changed concurrently")
	}
	return nil
}

func (s *Store) ListRange(ctx context.Context, employeeID, from, to string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+selectCols+`
	FROM attendance_records
	WHERE employee_id = ? AND work_date BETWEEN ? AND ?
	ORDER BY work_date ASC`, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *Store) ListActive(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+selectCols+`
	FROM attendance_records
	WHERE status IN ('clocked_in', 'away')
	ORDER BY employee_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *Store) ListByDate(ctx context.Context, workDate string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+selectCols+`
	FROM attendance_records
	WHERE work_date = ?
	ORDER BY employee_id ASC`, workDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Upsert: 管理者上書き用。既存日の行があれば UPDATE（duplicate→update-not-insert）。
// 状態機械のCASは通らない明示的な迂回路。
func (s *Store) Upsert(ctx context.Context, rec *Record) (*Record, error) {
	sessionsJSON, err := marshalSegments(rec.Sessions)
	if err != nil {
		return nil, err
	}
	breaksJSON, err := marshalSegments(rec.Breaks)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO attendance_records
		(attendance_ulid, employee_id, work_date, status, clock_in_at, clock_out_at,
		 active_seconds, last_active_at, sessions, breaks, daily_report,
		 created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, ?, NOW(6), NOW(6))
	ON DUPLICATE KEY UPDATE
		status         = VALUES(status),
		clock_in_at    = VALUES(clock_in_at),
		clock_out_at   = VALUES(clock_out_at),
		active_seconds = VALUES(active_seconds),
		last_active_at = NULL,
		sessions       = VALUES(sessions),
		breaks         = VALUES(breaks),
		updated_at     = NOW(6)`,
		rec.RecordULID, rec.EmployeeID, rec.WorkDate, rec.Status,
		nullTime(rec.ClockInAt), nullTime(rec.ClockOutAt),
		rec.ActiveSeconds, sessionsJSON, breaksJSON, rec.DailyReport,
	)
	if err != nil {
		return nil, err
	}

	// 確定行をUNIQUEキーで取り直す
	row := s.db.QueryRowContext(ctx, `
	SELECT `+selectCols+`
	FROM attendance_records
	WHERE employee_id = ? AND work_date = ?`, rec.EmployeeID, rec.WorkDate)
	out, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInternal("upserted but not found")
	}
	return out, err
}

// ===== helpers =====

func collectRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}
