package attendance

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ===== Error model (employees/projects と同型) =====
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

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// DirectoryEmployee: 勤怠エンジンが必要とする従業員情報の最小形。
// 身元情報そのものは employees パッケージが持つ。
type DirectoryEmployee struct {
	EmployeeID string
	Name       string
	Department string
	Position   string
}

// Directory: 従業員ディレクトリ。存在確認とロスター取得にだけ使う。
type Directory interface {
	Get(ctx context.Context, employeeID string) (*DirectoryEmployee, error) // 見つからなければ nil, nil
	ListActive(ctx context.Context) ([]DirectoryEmployee, error)
}

// Recorder: 監査ログの書き込み口。失敗しても遷移は成立させる（ベストエフォート）。
type Recorder interface {
	Record(ctx context.Context, actor, action, detail string) error
}

// ===== Service =====

type Service struct {
	store RecordStore
	dir   Directory
	audit Recorder
	clock Clock
	id    IDGen
	loc   *time.Location // 勤務日の日付境界
}

func NewService(db *sql.DB, dir Directory, audit Recorder, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store: NewStore(db),
		dir:   dir,
		audit: audit,
		clock: realClock{},
		id:    ulidGen{},
		loc:   loc,
	}
}

// workDate: 勤務日キー。instantはUTC保存だが日付境界は loc で切る。
func (s *Service) workDate(t time.Time) string {
	return t.In(s.loc).Format(DateLayout)
}

// findActiveRecord: アクティブ行の解決。
// 1) 日付に関係なく未終了行（日またぎセッション対応）
// 2) なければ今日の日付の行
// の二段フォールバックを必ずこの1関数経由にする（経路の分岐で挙動が割れないように）。
func (s *Service) findActiveRecord(ctx context.Context, employeeID string) (*Record, error) {
	rec, err := s.store.FindActive(ctx, employeeID)
	if err != nil || rec != nil {
		return rec, err
	}
	return s.store.FindByDate(ctx, employeeID, s.workDate(s.clock.Now()))
}

// POST /attendance/clock-in
func (s *Service) ClockIn(ctx context.Context, employeeID string) (*RecordResponse, error) {
	if employeeID == "" {
		return nil, ErrInvalid("employee_id is required")
	}
	emp, err := s.dir.Get(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, ErrNotFound("employee not found")
	}

	active, err := s.store.FindActive(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrConflict("already clocked in")
	}

	now := s.clock.Now().UTC()
	today := s.workDate(now)

	rec, err := s.store.FindByDate(ctx, employeeID, today)
	if err != nil {
		return nil, err
	}

	if rec == nil {
		// その日最初の出勤。INSERT側のNOT EXISTSガードが二重打刻レースを弾く。
		id, err := s.id.New()
		if err != nil {
			return nil, err
		}
		rec = &Record{
			RecordULID: id,
			EmployeeID: employeeID,
			WorkDate:   today,
			Sessions:   []Segment{},
			Breaks:     []Segment{},
		}
		rec.startWork(now)
		if err := s.store.InsertClockIn(ctx, rec); err != nil {
			return nil, err
		}
	} else {
		// 退勤済み（または上書きでabsent）の同日レコードへの再出勤
		from := rec.Status
		if from.Active() {
			return nil, ErrConflict("already clocked in")
		}
		rec.startWork(now)
		if err := s.store.UpdateTransition(ctx, rec, from); err != nil {
			return nil, err
		}
	}

	s.recordAudit(ctx, employeeID, "attendance.clock_in", rec.WorkDate)
	res := rec.toDTO(now)
	return &res, nil
}

// POST /attendance/away
func (s *Service) GoAway(ctx context.Context, employeeID string) (*RecordResponse, error) {
	rec, err := s.findActiveRecord(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Status != StatusClockedIn {
		return nil, ErrConflict("must be clocked in to go away")
	}

	now := s.clock.Now().UTC()
	rec.closeWork(now)
	rec.beginBreak(now)
	if err := s.store.UpdateTransition(ctx, rec, StatusClockedIn); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, employeeID, "attendance.away", rec.WorkDate)
	res := rec.toDTO(now)
	return &res, nil
}

// POST /attendance/resume
func (s *Service) Resume(ctx context.Context, employeeID string) (*RecordResponse, error) {
	rec, err := s.findActiveRecord(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Status != StatusAway {
		return nil, ErrConflict("not on a break")
	}

	now := s.clock.Now().UTC()
	rec.closeBreak(now)
	rec.startWork(now)
	if err := s.store.UpdateTransition(ctx, rec, StatusAway); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, employeeID, "attendance.resume", rec.WorkDate)
	res := rec.toDTO(now)
	return &res, nil
}

// POST /attendance/clock-out
func (s *Service) ClockOut(ctx context.Context, employeeID, report string) (*RecordResponse, error) {
	report = strings.TrimSpace(report)
	if report == "" {
		// 日報なしの退勤は受け付けない（ストアに触れる前に弾く）
		return nil, ErrInvalid("daily report is required")
	}

	rec, err := s.findActiveRecord(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if rec == nil || !rec.Status.Active() {
		return nil, ErrConflict("not clocked in")
	}

	now := s.clock.Now().UTC()
	from := rec.Status
	switch from {
	case StatusClockedIn:
		rec.closeWork(now)
	case StatusAway:
		rec.closeBreak(now)
	}
	rec.ClockOutAt = &now
	rec.Status = StatusClockedOut
	rec.LastActiveAt = nil
	rec.appendReport(now.In(s.loc), report)

	if err := s.store.UpdateTransition(ctx, rec, from); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, employeeID, "attendance.clock_out", rec.WorkDate)
	res := rec.toDTO(now)
	return &res, nil
}

// GET /attendance/today
func (s *Service) GetToday(ctx context.Context, employeeID string) (*RecordResponse, error) {
	rec, err := s.findActiveRecord(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound("no attendance record for today")
	}
	// 読み取り経路。開いている区間の経過分は toDTO 側で加算し、永続値は触らない。
	res := rec.toDTO(s.clock.Now().UTC())
	return &res, nil
}

// GET /attendance/history?month=&year=
func (s *Service) GetHistory(ctx context.Context, employeeID string, month, year int) (*HistoryResponse, error) {
	if month < 1 || month > 12 {
		return nil, ErrInvalid("month must be 1-12")
	}
	if year < 2000 || year > 2100 {
		return nil, ErrInvalid("year is out of range")
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	last := first.AddDate(0, 1, -1)
	recs, err := s.store.ListRange(ctx, employeeID, first.Format(DateLayout), last.Format(DateLayout))
	if err != nil {
		return nil, err
	}

	out := &HistoryResponse{
		EmployeeID: employeeID,
		Month:      month,
		Year:       year,
		Records:    make([]RecordResponse, 0, len(recs)),
	}
	var total int64
	for i := range recs {
		r := &recs[i]
		if r.Status.Present() {
			// active_seconds=0 でも非absentなら出勤日として数える
			out.Stats.DaysPresent++
		}
		total += r.ActiveSeconds
		// 履歴は確定値のみ。経過分の加算は today/roster の経路に限る
		out.Records = append(out.Records, r.toStoredDTO())
	}
	out.Stats.TotalActiveSeconds = total
	out.Stats.TotalWorkingHours = roundHours(total)
	return out, nil
}

// PUT /admin/attendance/override
// 状態機械を通らない明示的な迂回路。他日の未終了セッションとは突き合わせない。
func (s *Service) Override(ctx context.Context, actor string, req OverrideRequest) (*RecordResponse, error) {
	emp, err := s.dir.Get(ctx, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, ErrNotFound("employee not found")
	}

	day, err := time.ParseInLocation(DateLayout, req.Date, s.loc)
	if err != nil {
		return nil, ErrInvalid("date must be YYYY-MM-DD")
	}

	id, err := s.id.New()
	if err != nil {
		return nil, err
	}
	rec := &Record{
		RecordULID: id,
		EmployeeID: req.EmployeeID,
		WorkDate:   day.Format(DateLayout),
		Sessions:   []Segment{},
		Breaks:     []Segment{},
	}

	switch req.Status {
	case OverrideStatusPresent:
		// 8時間勤務の合成レコード（9:00始業）
		start := day.Add(OverrideStartHour * time.Hour).UTC()
		end := start.Add(OverrideActiveSeconds * time.Second)
		rec.Status = StatusClockedOut
		rec.ClockInAt = &start
		rec.ClockOutAt = &end
		rec.ActiveSeconds = OverrideActiveSeconds
		rec.Sessions = []Segment{{Start: start, End: &end, DurationSeconds: OverrideActiveSeconds}}
	case OverrideStatusAbsent:
		// 打刻と実働を消して欠勤扱いに戻す
		rec.Status = StatusAbsent
	default:
		return nil, ErrInvalid("status must be 'present' or 'absent'")
	}

	saved, err := s.store.Upsert(ctx, rec)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, "attendance.override",
		fmt.Sprintf("%s %s -> %s", req.EmployeeID, req.Date, req.Status))
	res := saved.toDTO(s.clock.Now().UTC())
	return &res, nil
}

// GET /admin/attendance/status
// 在籍者ロスターに当日/アクティブ状態を重ねる。
func (s *Service) RosterStatus(ctx context.Context) ([]RosterEntry, error) {
	emps, err := s.dir.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	today := s.workDate(now)

	actives, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	todays, err := s.store.ListByDate(ctx, today)
	if err != nil {
		return nil, err
	}

	byEmployee := make(map[string]*Record, len(actives)+len(todays))
	for i := range todays {
		byEmployee[todays[i].EmployeeID] = &todays[i]
	}
	for i := range actives {
		// 日またぎの未終了行を当日行より優先する
		byEmployee[actives[i].EmployeeID] = &actives[i]
	}

	out := make([]RosterEntry, 0, len(emps))
	for _, emp := range emps {
		entry := RosterEntry{
			EmployeeID: emp.EmployeeID,
			Name:       emp.Name,
			Department: emp.Department,
			Status:     string(StatusAbsent),
		}
		if rec, ok := byEmployee[emp.EmployeeID]; ok {
			entry.Status = string(rec.Status)
			entry.WorkDate = rec.WorkDate
			entry.ClockInAt = rec.ClockInAt
			entry.ActiveSeconds = rec.LiveActiveSeconds(now)
		}
		out = append(out, entry)
	}
	return out, nil
}

// recordAudit: 監査ログはベストエフォート。失敗してもエラーは返さない。
func (s *Service) recordAudit(ctx context.Context, actor, action, detail string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, actor, action, detail); err != nil {
		log.Printf("[WARN] audit write failed: action=%s actor=%s: %v", action, actor, err)
	}
}

// roundHours: 秒 → 時間（0.1時間単位で四捨五入）
func roundHours(seconds int64) float64 {
	return math.Round(float64(seconds)/3600*10) / 10
}
