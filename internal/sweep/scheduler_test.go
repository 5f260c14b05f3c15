package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/attendance"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/schedule"
)

// ===== テスト用の偽物 =====

type fakeTenants struct{ ids []uint64 }

func (f *fakeTenants) ListTenantIDs(context.Context) ([]uint64, error) { return f.ids, nil }

type fakeExits struct {
	last schedule.ClockTime
	ok   bool
}

func (f *fakeExits) LastExitClock(context.Context, uint64) (schedule.ClockTime, bool, error) {
	return f.last, f.ok, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func at(hour, min int) time.Time {
	return time.Date(2025, 4, 10, hour, min, 0, 0, time.UTC)
}

// 最終下校 13:30 + 猶予 30分 = 14:00 起動
func newTestScheduler(f *fixture, exits *fakeExits, now time.Time) *Scheduler {
	sc := NewScheduler(f.svc, &fakeTenants{ids: []uint64{1}}, exits, time.UTC, time.Minute, 30*time.Minute, 0)
	return sc.WithClock(fixedClock{now: now})
}

// ===== テスト =====

func TestDueAt(t *testing.T) {
	exits := &fakeExits{last: schedule.ClockTime{Hour: 13, Minute: 30}, ok: true}
	sc := NewScheduler(nil, nil, exits, time.UTC, time.Minute, 30*time.Minute, 0)

	due, err := sc.dueAt(context.Background(), 1, day)
	if err != nil {
		t.Fatalf("dueAt: %v", err)
	}
	if want := at(14, 0); !due.Equal(want) {
		t.Errorf("due = %v, want %v", due, want)
	}
}

func TestDueAtUnconfigured(t *testing.T) {
	sc := NewScheduler(nil, nil, &fakeExits{}, time.UTC, time.Minute, 30*time.Minute, 0)

	due, err := sc.dueAt(context.Background(), 1, day)
	if err != nil {
		t.Fatalf("dueAt: %v", err)
	}
	if !due.IsZero() {
		t.Errorf("tenant without exit windows must never fire, got %v", due)
	}
}

func TestTickRunsAfterDue(t *testing.T) {
	f := newFixture(true, ana, beto)
	exits := &fakeExits{last: schedule.ClockTime{Hour: 13, Minute: 30}, ok: true}
	sc := newTestScheduler(f, exits, at(14, 5))

	sc.tick(context.Background())

	if f.ledger.inserted[ana] != attendance.EntryAbsent {
		t.Error("ana should be swept once past due time")
	}
	run, _ := f.runs.GetRun(context.Background(), 1, "2025-04-10")
	if run == nil || run.Status != RunStatusDone {
		t.Errorf("run = %+v, want DONE", run)
	}
}

func TestTickWaitsBeforeDue(t *testing.T) {
	f := newFixture(true, ana)
	exits := &fakeExits{last: schedule.ClockTime{Hour: 13, Minute: 30}, ok: true}
	sc := newTestScheduler(f, exits, at(13, 45))

	sc.tick(context.Background())

	if len(f.ledger.inserted) != 0 {
		t.Error("nothing may be swept before exit window + grace")
	}
	if run, _ := f.runs.GetRun(context.Background(), 1, "2025-04-10"); run != nil {
		t.Errorf("no run row expected before due time, got %+v", run)
	}
}

func TestTickSkipsDoneRun(t *testing.T) {
	f := newFixture(true, ana)
	f.runs.runs["2025-04-10"] = &Run{SweptOn: "2025-04-10", Status: RunStatusDone, Attempts: 1, UpdatedAt: time.Now()}
	exits := &fakeExits{last: schedule.ClockTime{Hour: 13, Minute: 30}, ok: true}
	sc := newTestScheduler(f, exits, at(14, 5))

	sc.tick(context.Background())

	if len(f.ledger.inserted) != 0 {
		t.Error("a DONE run must not be re-executed")
	}
	run, _ := f.runs.GetRun(context.Background(), 1, "2025-04-10")
	if run.Attempts != 1 {
		t.Errorf("attempts = %d, want unchanged", run.Attempts)
	}
}
