package attendance

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// 月次勤怠CSVの見出し行
var exportHeader = []string{"work_date", "status", "clock_in", "clock_out", "active_seconds", "working_hours", "daily_report"}

const exportTimeLayout = "15:04:05"

// ExportMonthCSV: 確定済みレコードの読み取り専用エクスポート。
// encoding=sjis のときは Excel 互換の cp932 で書き出す。
func (s *Service) ExportMonthCSV(ctx context.Context, employeeID string, month, year int, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "", "utf8", "utf-8", "sjis", "shift_jis":
	default:
		return nil, ErrInvalid("encoding must be utf8 or sjis")
	}

	hist, err := s.GetHistory(ctx, employeeID, month, year)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	w := csv.NewWriter(&b)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, rec := range hist.Records {
		row := []string{
			rec.WorkDate,
			rec.Status,
			s.formatClock(rec.ClockInAt),
			s.formatClock(rec.ClockOutAt),
			fmt.Sprintf("%d", rec.ActiveSeconds),
			fmt.Sprintf("%.1f", roundHours(rec.ActiveSeconds)),
			rec.DailyReport,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	switch strings.ToLower(encoding) {
	case "sjis", "shift_jis":
		// Windowsの「ANSI（CP932）」相当
		enc := japanese.ShiftJIS.NewEncoder()
		out, _, err := transform.Bytes(enc, b.Bytes())
		if err != nil {
			return nil, ErrInternal("cp932 encoding failed: " + err.Error())
		}
		return out, nil
	default:
		return b.Bytes(), nil
	}
}

// 打刻時刻は勤務日タイムゾーンに直して書く
func (s *Service) formatClock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(s.loc).Format(exportTimeLayout)
}
