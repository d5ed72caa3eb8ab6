package attendance

import "time"

const (
	DateLayout = "2006-01-02"

	// 管理者上書きで合成する1日分の実働（8時間）
	OverrideActiveSeconds = 8 * 60 * 60
	// 合成レコードの始業時刻（勤務日タイムゾーンの時台）
	OverrideStartHour = 9

	OverrideStatusPresent = "present"
	OverrideStatusAbsent  = "absent"
)

// ===== Requests =====

type ClockOutRequest struct {
	Report string `json:"report" binding:"required"`
}

type OverrideRequest struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	Date       string `json:"date" binding:"required"` // YYYY-MM-DD
	Status     string `json:"status" binding:"required"` // present | absent
}

// ===== Responses =====

type SegmentDTO struct {
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end,omitempty"`
	DurationSeconds int64      `json:"duration_seconds,omitempty"`
}

type RecordResponse struct {
	RecordULID    string       `json:"record_ulid"`
	EmployeeID    string       `json:"employee_id"`
	WorkDate      string       `json:"work_date"`
	Status        string       `json:"status"`
	ClockInAt     *time.Time   `json:"clock_in_at,omitempty"`
	ClockOutAt    *time.Time   `json:"clock_out_at,omitempty"`
	ActiveSeconds int64        `json:"active_seconds"`
	LastActiveAt  *time.Time   `json:"last_active_at,omitempty"`
	Sessions      []SegmentDTO `json:"sessions"`
	Breaks        []SegmentDTO `json:"breaks"`
	DailyReport   string       `json:"daily_report,omitempty"`
}

type HistoryStats struct {
	DaysPresent        int     `json:"days_present"`
	TotalActiveSeconds int64   `json:"total_active_seconds"`
	TotalWorkingHours  float64 `json:"total_working_hours"` // 0.1時間単位に丸め
}

type HistoryResponse struct {
	EmployeeID string           `json:"employee_id"`
	Month      int              `json:"month"`
	Year       int              `json:"year"`
	Records    []RecordResponse `json:"records"`
	Stats      HistoryStats     `json:"stats"`
}

// RosterEntry: 管理者向け「現在の在席状況」一覧の1行
type RosterEntry struct {
	EmployeeID    string     `json:"employee_id"`
	Name          string     `json:"name"`
	Department    string     `json:"department,omitempty"`
	Status        string     `json:"status"`
	WorkDate      string     `json:"work_date,omitempty"`
	ClockInAt     *time.Time `json:"clock_in_at,omitempty"`
	ActiveSeconds int64      `json:"active_seconds"`
}
