package attendance

import (
	"encoding/json"
	"time"
)

// 勤怠ステータス。状態遷移は service.go 側で検証する。
type Status string

const (
	StatusClockedIn  Status = "clocked_in"
	StatusClockedOut Status = "clocked_out"
	StatusAway       Status = "away"
	StatusAbsent     Status = "absent"
)

// Active: 未終了セッションを持つ状態（日付をまたいでも有効）
func (s Status) Active() bool { return s == StatusClockedIn || s == StatusAway }

// Present: 集計上「出勤日」として数える状態
func (s Status) Present() bool { return s == StatusClockedIn || s == StatusClockedOut || s == StatusAway }

func (s Status) valid() bool {
	switch s {
	case StatusClockedIn, StatusClockedOut, StatusAway, StatusAbsent:
		return true
	}
	return false
}

// Segment は作業区間(sessions)・休憩区間(breaks)の1要素。
// End == nil の間は「開いている」。閉じた時点で DurationSeconds が確定する。
type Segment struct {
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end,omitempty"`
	DurationSeconds int64      `json:"duration_seconds,omitempty"`
}

func (g Segment) Open() bool { return g.End == nil }

// Record は attendance_records テーブルの1行。
// (employee_id, work_date) で一意。日またぎセッションは開始日の行に帰属する。
type Record struct {
	RecordID      int64
	RecordULID    string
	EmployeeID    string
	WorkDate      string // YYYY-MM-DD
	Status        Status
	ClockInAt     *time.Time // その日の最初の出勤打刻（表示用）
	ClockOutAt    *time.Time // 直近の退勤打刻（表示用）
	ActiveSeconds int64      // 確定済み実働秒数。閉じた sessions の合計と一致する
	LastActiveAt  *time.Time // 現在の作業区間の開始。clocked_in の間のみ非nil
	Sessions      []Segment
	Breaks        []Segment
	DailyReport   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ===== 状態遷移の実体（前提条件の検証は service 側） =====

// startWork: 新しい作業区間を開く。sessions へは閉じた時に追記する方式なので、
// 開いている区間は LastActiveAt だけが示す。
func (r *Record) startWork(now time.Time) {
	r.Status = StatusClockedIn
	r.LastActiveAt = &now
	if r.ClockInAt == nil {
		r.ClockInAt = &now
	}
}

// closeWork: 開いている作業区間を閉じ、経過秒を ActiveSeconds に積む。
func (r *Record) closeWork(now time.Time) int64 {
	if r.LastActiveAt == nil {
		return 0
	}
	start := *r.LastActiveAt
	elapsed := int64(now.Sub(start) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	end := now
	r.Sessions = append(r.Sessions, Segment{Start: start, End: &end, DurationSeconds: elapsed})
	r.ActiveSeconds += elapsed
	r.LastActiveAt = nil
	return elapsed
}

// beginBreak: 休憩区間を開く。breaks の末尾だけが開いていてよい。
func (r *Record) beginBreak(now time.Time) {
	r.Breaks = append(r.Breaks, Segment{Start: now})
	r.Status = StatusAway
}

// closeBreak: 開いている休憩区間を閉じる。開いていなければ何もしない。
func (r *Record) closeBreak(now time.Time) {
	n := len(r.Breaks)
	if n == 0 || !r.Breaks[n-1].Open() {
		return
	}
	b := &r.Breaks[n-1]
	end := now
	b.End = &end
	b.DurationSeconds = int64(now.Sub(b.Start) / time.Second)
	if b.DurationSeconds < 0 {
		b.DurationSeconds = 0
	}
}

// appendReport: 同日の再退勤では日報を上書きせず追記する。2回目以降は時刻付き。
func (r *Record) appendReport(localNow time.Time, report string) {
	if r.DailyReport == "" {
		r.DailyReport = report
		return
	}
	r.DailyReport += "\n[" + localNow.Format("2006-01-02 15:04") + "] " + report
}

// LiveActiveSeconds: 読み取り時の実働秒数。clocked_in の間は開いている区間の
// 経過分を加算して返す（永続値は変更しない）。
func (r *Record) LiveActiveSeconds(now time.Time) int64 {
	total := r.ActiveSeconds
	if r.Status == StatusClockedIn && r.LastActiveAt != nil {
		if d := int64(now.Sub(*r.LastActiveAt) / time.Second); d > 0 {
			total += d
		}
	}
	return total
}

// ===== JSON列（sessions / breaks）の変換 =====

func marshalSegments(segs []Segment) ([]byte, error) {
	if segs == nil {
		segs = []Segment{}
	}
	return json.Marshal(segs)
}

func unmarshalSegments(raw []byte) ([]Segment, error) {
	if len(raw) == 0 {
		return []Segment{}, nil
	}
	var segs []Segment
	if err := json.Unmarshal(raw, &segs); err != nil {
		return nil, err
	}
	if segs == nil {
		segs = []Segment{}
	}
	return segs, nil
}

// toDTO: 当日・ロスターの読み取り経路用。clocked_in 中は開いている区間の
// 経過分を加算して返す。
func (r *Record) toDTO(now time.Time) RecordResponse {
	res := r.toStoredDTO()
	res.ActiveSeconds = r.LiveActiveSeconds(now)
	return res
}

// toStoredDTO: 履歴・集計の読み取り経路用。確定済みの active_seconds を
// そのまま返す（レコードの合計 = stats の合計が常に成り立つ）。
func (r *Record) toStoredDTO() RecordResponse {
	return RecordResponse{
		RecordULID:    r.RecordULID,
		EmployeeID:    r.EmployeeID,
		WorkDate:      r.WorkDate,
		Status:        string(r.Status),
		ClockInAt:     r.ClockInAt,
		ClockOutAt:    r.ClockOutAt,
		ActiveSeconds: r.ActiveSeconds,
		LastActiveAt:  r.LastActiveAt,
		Sessions:      segmentsToDTO(r.Sessions),
		Breaks:        segmentsToDTO(r.Breaks),
		DailyReport:   r.DailyReport,
	}
}

func segmentsToDTO(segs []Segment) []SegmentDTO {
	out := make([]SegmentDTO, 0, len(segs))
	for _, g := range segs {
		out = append(out, SegmentDTO{Start: g.Start, End: g.End, DurationSeconds: g.DurationSeconds})
	}
	return out
}
