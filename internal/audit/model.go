package audit

import "time"

// Entry は audit_logs テーブルの1行（追記専用）
type Entry struct {
	AuditID   int64     `json:"-"`
	AuditULID string    `json:"audit_ulid"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ListQuery struct {
	Actor  string
	Action string
	Limit  int
	Offset int
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)
