package audit

import (
	"context"
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"
)

type Service struct {
	store *Store
}

func NewService(db *sql.DB) *Service {
	return &Service{store: NewStore(db)}
}

// Record: 操作ログの追記。attendance.Recorder を満たす。
// 呼び出し側でベストエフォート扱いにするため、ここでは素直にエラーを返すだけ。
func (s *Service) Record(ctx context.Context, actor, action, detail string) error {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return err
	}
	return s.store.Insert(ctx, &Entry{
		AuditULID: id.String(),
		Actor:     actor,
		Action:    action,
		Detail:    detail,
	})
}

// List: 管理者向け閲覧
func (s *Service) List(ctx context.Context, q ListQuery) ([]Entry, int64, error) {
	return s.store.List(ctx, q)
}
