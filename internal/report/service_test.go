package report

import (
	"context"
	"testing"
	"time"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/attendance"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/calendar"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
)

// ===== テスト用の偽物 =====

type fakeCal struct {
	holidays map[string]bool // 平日でも休業にする日
	bimester *calendar.Bimester
}

func (f *fakeCal) IsWorkingDay(_ context.Context, _ uint64, date time.Time) (bool, error) {
	wd := date.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false, nil
	}
	return !f.holidays[date.Format(DateLayout)], nil
}

func (f *fakeCal) ResolveBimester(context.Context, uint64, time.Time) (*calendar.Bimester, error) {
	return f.bimester, nil
}

type fakeRoster struct{ active []roster.Assignment }

func (f *fakeRoster) ListActive(context.Context, uint64, time.Time, roster.Filter) ([]roster.Assignment, error) {
	return f.active, nil
}

type fakeSource struct{ rows map[RowKey]Row }

func (f *fakeSource) FetchRange(context.Context, uint64, string, string) (map[RowKey]Row, error) {
	return f.rows, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// ===== セットアップ =====

func student(id uint64, name string) roster.Assignment {
	return roster.Assignment{
		Ref:      roster.AttendableRef{Type: roster.TypeStudent, ID: id},
		FullName: name,
		Level:    "primaria", Grade: "3", Section: "A", Shift: "morning",
		Active: true,
	}
}

func row(id uint64, date, entry string) (RowKey, Row) {
	k := RowKey{Type: "STUDENT", ID: id, Date: date}
	r := Row{ExitStatus: attendance.ExitNotExited}
	if entry != "" {
		r.EntryStatus = &entry
	}
	return k, r
}

func date(s string) time.Time {
	t, _ := time.ParseInLocation(DateLayout, s, time.UTC)
	return t
}

func newService(rows map[RowKey]Row, cal *fakeCal, active []roster.Assignment) *Service {
	svc := NewServiceWithSource(&fakeSource{rows: rows}, Deps{
		Calendar: cal,
		Roster:   &fakeRoster{active: active},
	})
	// 集計対象期間より十分未来に固定
	return svc.WithClock(fixedClock{now: date("2025-06-01")})
}

// ===== テスト =====

// 2025-04-10（木）1日分、生徒3人: 出席1・遅刻1・行なし1
func TestAggregateSingleDay(t *testing.T) {
	rows := map[RowKey]Row{}
	k, r := row(1, "2025-04-10", attendance.EntryPresent)
	rows[k] = r
	k, r = row(2, "2025-04-10", attendance.EntryLate)
	rows[k] = r
	// 生徒3は行なし（スイープ未実行）

	svc := newService(rows, &fakeCal{}, []roster.Assignment{
		student(1, "Ana"), student(2, "Beto"), student(3, "Carla"),
	})

	stats, err := svc.Aggregate(context.Background(), 1, date("2025-04-10"), date("2025-04-10"), Filters{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if stats.WorkingDays != 1 {
		t.Errorf("working days = %d", stats.WorkingDays)
	}
	// 行なしの生徒は ABSENT のみ（NOT_EXITED には数えない）
	want := Counts{Present: 1, Late: 1, Absent: 1, NotExited: 2, ExpectedDays: 3}
	if stats.Totals != want {
		t.Errorf("totals = %+v, want %+v", stats.Totals, want)
	}
	if len(stats.Attendables) != 3 {
		t.Fatalf("attendables = %d", len(stats.Attendables))
	}
	// 行なしの生徒は ABSENT として数える
	if stats.Attendables[2].Counts.Absent != 1 {
		t.Errorf("carla = %+v", stats.Attendables[2].Counts)
	}
}

func TestAggregateSkipsNonWorkingDays(t *testing.T) {
	rows := map[RowKey]Row{}
	k, r := row(1, "2025-04-10", attendance.EntryPresent)
	rows[k] = r

	cal := &fakeCal{holidays: map[string]bool{"2025-04-11": true}} // 金曜を休業に

	svc := newService(rows, cal, []roster.Assignment{student(1, "Ana")})

	// 4/10(木)〜4/13(日): 営業日は 4/10 のみ
	stats, err := svc.Aggregate(context.Background(), 1, date("2025-04-10"), date("2025-04-13"), Filters{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if stats.WorkingDays != 1 {
		t.Errorf("working days = %d, want 1", stats.WorkingDays)
	}
	if stats.Totals.ExpectedDays != 1 || stats.Totals.Absent != 0 {
		t.Errorf("totals = %+v", stats.Totals)
	}
}

func TestAggregateExcludesTodayAndFuture(t *testing.T) {
	rows := map[RowKey]Row{}
	k, r := row(1, "2025-05-29", attendance.EntryPresent)
	rows[k] = r

	svc := NewServiceWithSource(&fakeSource{rows: rows}, Deps{
		Calendar: &fakeCal{},
		Roster:   &fakeRoster{active: []roster.Assignment{student(1, "Ana")}},
	}).WithClock(fixedClock{now: date("2025-05-30")}) // 5/30(金) が「今日」

	// 5/29(木)〜6/2(月): 今日以降は分母に入れない
	stats, err := svc.Aggregate(context.Background(), 1, date("2025-05-29"), date("2025-06-02"), Filters{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if stats.WorkingDays != 1 {
		t.Errorf("working days = %d, want only 5/29", stats.WorkingDays)
	}
	if stats.Totals.Absent != 0 {
		t.Errorf("future days must not count as absent: %+v", stats.Totals)
	}
}

// 部分区間の合計が全区間と一致する（カウントの加法性）
func TestAggregateAdditivity(t *testing.T) {
	rows := map[RowKey]Row{}
	k, r := row(1, "2025-04-07", attendance.EntryPresent)
	rows[k] = r
	k, r = row(1, "2025-04-08", attendance.EntryLate)
	rows[k] = r
	k, r = row(1, "2025-04-09", attendance.EntryAbsent)
	rows[k] = r

	active := []roster.Assignment{student(1, "Ana")}
	svc := newService(rows, &fakeCal{}, active)

	whole, err := svc.Aggregate(context.Background(), 1, date("2025-04-07"), date("2025-04-10"), Filters{})
	if err != nil {
		t.Fatalf("whole: %v", err)
	}
	left, err := svc.Aggregate(context.Background(), 1, date("2025-04-07"), date("2025-04-08"), Filters{})
	if err != nil {
		t.Fatalf("left: %v", err)
	}
	right, err := svc.Aggregate(context.Background(), 1, date("2025-04-09"), date("2025-04-10"), Filters{})
	if err != nil {
		t.Fatalf("right: %v", err)
	}

	sum := left.Totals
	sum.add(right.Totals)
	if sum != whole.Totals {
		t.Errorf("left+right = %+v, whole = %+v", sum, whole.Totals)
	}
}

func TestCountDayExitAndAnomaly(t *testing.T) {
	present := attendance.EntryPresent
	tests := []struct {
		name string
		row  Row
		want Counts
	}{
		{
			"complete day",
			Row{EntryStatus: &present, ExitStatus: attendance.ExitComplete},
			Counts{Present: 1, ExpectedDays: 1},
		},
		{
			"early exit",
			Row{EntryStatus: &present, ExitStatus: attendance.ExitEarly},
			Counts{Present: 1, EarlyExit: 1, ExpectedDays: 1},
		},
		{
			"early exit justified",
			Row{EntryStatus: &present, ExitStatus: attendance.ExitEarlyJustified},
			Counts{Present: 1, EarlyExitJustified: 1, ExpectedDays: 1},
		},
		{
			"never exited",
			Row{EntryStatus: &present, ExitStatus: attendance.ExitNotExited},
			Counts{Present: 1, NotExited: 1, ExpectedDays: 1},
		},
		{
			"exit-only row counts absent entry plus anomaly",
			Row{ExitStatus: attendance.ExitComplete, Anomaly: true},
			Counts{Absent: 1, Anomalies: 1, ExpectedDays: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countDay(tt.row, true); got != tt.want {
				t.Errorf("countDay = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveBimesterRange(t *testing.T) {
	b := &calendar.Bimester{Seq: 1, StartDate: "2025-03-03", EndDate: "2025-05-16"}
	svc := newService(nil, &fakeCal{bimester: b}, nil)

	from, to, err := svc.ResolveBimesterRange(context.Background(), 1, date("2025-04-10"))
	if err != nil {
		t.Fatalf("ResolveBimesterRange: %v", err)
	}
	if from.Format(DateLayout) != "2025-03-03" || to.Format(DateLayout) != "2025-05-16" {
		t.Errorf("range = %s..%s", from.Format(DateLayout), to.Format(DateLayout))
	}
}

func TestResolveBimesterRangeNotFound(t *testing.T) {
	svc := newService(nil, &fakeCal{}, nil)
	_, _, err := svc.ResolveBimesterRange(context.Background(), 1, date("2026-01-15"))
	api, ok := err.(*APIError)
	if !ok || api.Code != CodeNotFound {
		t.Fatalf("want NOT_FOUND, got %v", err)
	}
}

func TestAggregateRejectsInvertedRange(t *testing.T) {
	svc := newService(nil, &fakeCal{}, nil)
	_, err := svc.Aggregate(context.Background(), 1, date("2025-04-10"), date("2025-04-01"), Filters{})
	api, ok := err.(*APIError)
	if !ok || api.Code != CodeInvalidArgument {
		t.Fatalf("want INVALID_ARGUMENT, got %v", err)
	}
}
