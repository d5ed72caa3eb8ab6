package attendance

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func seedExportMonth(t *testing.T, st *memStore) {
	t.Helper()
	in := mustTime(t, "2025-06-02T09:00:00Z")
	out := mustTime(t, "2025-06-02T17:00:00Z")
	recs := []Record{
		{
			RecordULID: "A", EmployeeID: testEmployee, WorkDate: "2025-06-02",
			Status: StatusClockedOut, ClockInAt: &in, ClockOutAt: &out,
			ActiveSeconds: 28800, DailyReport: "資料作成",
		},
		{RecordULID: "B", EmployeeID: testEmployee, WorkDate: "2025-06-03", Status: StatusAbsent},
	}
	for i := range recs {
		if _, err := st.Upsert(context.Background(), &recs[i]); err != nil {
			t.Fatal(err)
		}
	}
}

func TestExportMonthCSV(t *testing.T) {
	svc, st, _, _ := newTestService(t, mustTime(t, "2025-06-30T09:00:00Z"))
	seedExportMonth(t, st)

	out, err := svc.ExportMonthCSV(context.Background(), testEmployee, 6, 2025, "utf8")
	if err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2 records", len(rows))
	}
	if rows[0][0] != "work_date" || rows[0][6] != "daily_report" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "2025-06-02" || rows[1][1] != "clocked_out" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	if rows[1][2] != "09:00:00" || rows[1][3] != "17:00:00" {
		t.Errorf("clock columns = %q/%q, want 09:00:00/17:00:00", rows[1][2], rows[1][3])
	}
	if rows[1][4] != "28800" || rows[1][5] != "8.0" {
		t.Errorf("seconds/hours = %q/%q, want 28800/8.0", rows[1][4], rows[1][5])
	}
	if rows[2][1] != "absent" || rows[2][2] != "" {
		t.Errorf("absent row must have empty clock columns: %v", rows[2])
	}
}

// sjis指定時はcp932バイト列になる（復号して元に戻ることを確認）
func TestExportMonthCSVShiftJIS(t *testing.T) {
	svc, st, _, _ := newTestService(t, mustTime(t, "2025-06-30T09:00:00Z"))
	seedExportMonth(t, st)

	out, err := svc.ExportMonthCSV(context.Background(), testEmployee, 6, 2025, "sjis")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(out, []byte("資料作成")) {
		t.Error("sjis output must not contain raw UTF-8 report text")
	}

	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(decoded, []byte("資料作成")) {
		t.Error("decoded sjis output must round-trip the report text")
	}
}

// 未確定の日（clocked_in中）は確定秒数のまま書き出す
func TestExportUsesPersistedSecondsForOpenSession(t *testing.T) {
	ctx := context.Background()
	svc, _, clk, _ := newTestService(t, mustTime(t, "2025-06-02T09:00:00Z"))

	if _, err := svc.ClockIn(ctx, testEmployee); err != nil {
		t.Fatal(err)
	}
	clk.Advance(10 * time.Minute)

	out, err := svc.ExportMonthCSV(ctx, testEmployee, 6, 2025, "utf8")
	if err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1 record", len(rows))
	}
	if rows[1][1] != "clocked_in" || rows[1][4] != "0" {
		t.Errorf("open-session row = %v, want status clocked_in with active_seconds 0", rows[1])
	}
}

func TestExportMonthCSVBadEncoding(t *testing.T) {
	svc, _, _, _ := newTestService(t, mustTime(t, "2025-06-30T09:00:00Z"))
	_, err := svc.ExportMonthCSV(context.Background(), testEmployee, 6, 2025, "euc-jp")
	wantCode(t, err, CodeInvalidArgument)
}

// タイムゾーン設定が打刻列の表記に反映される
func TestExportClockColumnsUseConfiguredZone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	svc, st, _, _ := newTestService(t, mustTime(t, "2025-06-30T09:00:00Z"))
	svc.loc = loc
	seedExportMonth(t, st)

	out, err := svc.ExportMonthCSV(context.Background(), testEmployee, 6, 2025, "")
	if err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// 09:00 UTC = 18:00 JST
	if rows[1][2] != "18:00:00" {
		t.Errorf("clock_in = %q, want 18:00:00 (JST)", rows[1][2])
	}
}
