package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/attendance"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/justification"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/notification"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
)

// ===== テスト用の偽物 =====

type fakeCal struct{ working bool }

func (f *fakeCal) IsWorkingDay(context.Context, uint64, time.Time) (bool, error) {
	return f.working, nil
}

type fakeRoster struct{ active []roster.Assignment }

func (f *fakeRoster) ListActive(context.Context, uint64, time.Time, roster.Filter) ([]roster.Assignment, error) {
	return f.active, nil
}

type fakeJustif struct{ absent map[roster.AttendableRef]bool }

func (f *fakeJustif) ActiveFor(_ context.Context, _ uint64, ref roster.AttendableRef, _ time.Time, jtype string) (*justification.Justification, error) {
	if jtype == justification.TypeAbsence && f.absent[ref] {
		return &justification.Justification{ULID: "J", Type: jtype}, nil
	}
	return nil, nil
}

// fakeLedger: InsertAbsent の「既にあれば何もしない」を再現。failFor で失敗注入
type fakeLedger struct {
	mu       sync.Mutex
	existing map[roster.AttendableRef]bool
	inserted map[roster.AttendableRef]string // ref -> entry_status
	failFor  map[roster.AttendableRef]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		existing: map[roster.AttendableRef]bool{},
		inserted: map[roster.AttendableRef]string{},
		failFor:  map[roster.AttendableRef]bool{},
	}
}

func (f *fakeLedger) InsertAbsent(_ context.Context, _ string, _ uint64, ref roster.AttendableRef, _ string, entryStatus string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[ref] {
		return false, errors.New("deadlock found when trying to get lock")
	}
	if f.existing[ref] {
		return false, nil
	}
	f.existing[ref] = true
	f.inserted[ref] = entryStatus
	return true, nil
}

type fakeRuns struct {
	mu   sync.Mutex
	runs map[string]*Run
}

func newFakeRuns() *fakeRuns { return &fakeRuns{runs: map[string]*Run{}} }

func (f *fakeRuns) Claim(_ context.Context, ulid string, tenantID uint64, date string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[date]
	if !ok {
		f.runs[date] = &Run{ULID: ulid, TenantID: tenantID, SweptOn: date, Status: RunStatusRunning, Attempts: 1, UpdatedAt: time.Now()}
		return true, nil
	}
	// 本物と同じ: 生きた RUNNING だけが奪取を拒める
	if r.Status == RunStatusRunning && time.Since(r.UpdatedAt) < staleClaimAfter {
		return false, nil
	}
	r.ULID = ulid
	r.Status = RunStatusRunning
	r.Attempts++
	r.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeRuns) Finish(_ context.Context, _ uint64, date, status string, created, skipped, failed int, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.runs[date]
	r.Status = status
	r.Created = created
	r.Skipped = skipped
	r.Failed = failed
	r.LastError = lastError
	r.UpdatedAt = time.Now()
	return nil
}

func (f *fakeRuns) GetRun(_ context.Context, _ uint64, date string) (*Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[date]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	intents []notification.Intent
}

func (f *fakeNotifier) Enqueue(in notification.Intent) {
	f.mu.Lock()
	f.intents = append(f.intents, in)
	f.mu.Unlock()
}

// ===== セットアップ =====

var (
	ana   = roster.AttendableRef{Type: roster.TypeStudent, ID: 1}
	beto  = roster.AttendableRef{Type: roster.TypeStudent, ID: 2}
	carla = roster.AttendableRef{Type: roster.TypeTeacher, ID: 3}
)

func assignments(refs ...roster.AttendableRef) []roster.Assignment {
	out := make([]roster.Assignment, 0, len(refs))
	for _, r := range refs {
		out = append(out, roster.Assignment{Ref: r, Active: true})
	}
	return out
}

type fixture struct {
	svc      *Service
	runs     *fakeRuns
	ledger   *fakeLedger
	justif   *fakeJustif
	notifier *fakeNotifier
}

func newFixture(working bool, refs ...roster.AttendableRef) *fixture {
	runs := newFakeRuns()
	ledger := newFakeLedger()
	justif := &fakeJustif{absent: map[roster.AttendableRef]bool{}}
	notifier := &fakeNotifier{}
	svc := NewServiceWithRuns(runs, Deps{
		Calendar: &fakeCal{working: working},
		Roster:   &fakeRoster{active: assignments(refs...)},
		Justif:   justif,
		Ledger:   ledger,
		Notifier: notifier,
	})
	return &fixture{svc: svc, runs: runs, ledger: ledger, justif: justif, notifier: notifier}
}

var day = time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)

// ===== テスト =====

func TestRunForTenant(t *testing.T) {
	f := newFixture(true, ana, beto, carla)
	f.ledger.existing[beto] = true // beto はスキャン済み

	res, err := f.svc.RunForTenant(context.Background(), 1, day)
	if err != nil {
		t.Fatalf("RunForTenant: %v", err)
	}
	if res.Created != 2 || res.Skipped != 1 || res.Failed != 0 {
		t.Fatalf("result = %+v", res)
	}
	if f.ledger.inserted[ana] != attendance.EntryAbsent {
		t.Errorf("ana status = %q", f.ledger.inserted[ana])
	}
	if _, ok := f.ledger.inserted[beto]; ok {
		t.Error("beto already had a row, must not be overwritten")
	}

	run, _ := f.runs.GetRun(context.Background(), 1, "2025-04-10")
	if run.Status != RunStatusDone {
		t.Errorf("run status = %s, want DONE", run.Status)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(true, ana, beto)

	if _, err := f.svc.RunForTenant(context.Background(), 1, day); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := f.svc.RunForTenant(context.Background(), 1, day)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Created != 0 || res.Skipped != 2 {
		t.Fatalf("second run must create nothing: %+v", res)
	}
}

func TestAbsenceJustification(t *testing.T) {
	// 2025-04-10〜12 を覆う ABSENCE 事由を持つ ana
	f := newFixture(true, ana, beto)
	f.justif.absent[ana] = true

	res, err := f.svc.RunForTenant(context.Background(), 1, day)
	if err != nil {
		t.Fatalf("RunForTenant: %v", err)
	}
	if res.Created != 2 {
		t.Fatalf("created = %d", res.Created)
	}
	if f.ledger.inserted[ana] != attendance.EntryAbsentJustified {
		t.Errorf("ana = %q, want ABSENT_JUSTIFIED", f.ledger.inserted[ana])
	}
	if f.ledger.inserted[beto] != attendance.EntryAbsent {
		t.Errorf("beto = %q, want ABSENT", f.ledger.inserted[beto])
	}
}

func TestNonWorkingDayIsNoop(t *testing.T) {
	f := newFixture(false, ana)

	res, err := f.svc.RunForTenant(context.Background(), 1, day)
	if err != nil {
		t.Fatalf("RunForTenant: %v", err)
	}
	if res.Working {
		t.Error("working should be false")
	}
	if len(f.ledger.inserted) != 0 {
		t.Error("nothing should be inserted on a non-working day")
	}
	if run, _ := f.runs.GetRun(context.Background(), 1, "2025-04-10"); run != nil {
		t.Error("no run row should be recorded for a non-working day")
	}
}

func TestClaimConflict(t *testing.T) {
	f := newFixture(true, ana)
	f.runs.runs["2025-04-10"] = &Run{SweptOn: "2025-04-10", Status: RunStatusRunning, UpdatedAt: time.Now()}

	_, err := f.svc.RunForTenant(context.Background(), 1, day)
	var api *APIError
	if !errors.As(err, &api) || api.Code != CodeConflict {
		t.Fatalf("want CONFLICT while another run is in progress, got %v", err)
	}
}

// クラッシュ等で RUNNING のまま放置された claim は期限切れ後に奪えること。
// 奪えないとそのテナント日は再実行もバックフィルも全部 CONFLICT になり、欠席が永久に記録されない。
func TestStaleClaimTakeover(t *testing.T) {
	f := newFixture(true, ana, beto)
	f.runs.runs["2025-04-10"] = &Run{
		SweptOn:   "2025-04-10",
		Status:    RunStatusRunning,
		Attempts:  1,
		UpdatedAt: time.Now().Add(-staleClaimAfter - time.Minute),
	}

	res, err := f.svc.RunForTenant(context.Background(), 1, day)
	if err != nil {
		t.Fatalf("stale RUNNING claim must be reclaimable: %v", err)
	}
	if res.Created != 2 {
		t.Fatalf("result = %+v", res)
	}
	if f.ledger.inserted[ana] != attendance.EntryAbsent {
		t.Error("ana should be swept after takeover")
	}

	run, _ := f.runs.GetRun(context.Background(), 1, "2025-04-10")
	if run.Status != RunStatusDone {
		t.Errorf("run status = %s, want DONE", run.Status)
	}
	if run.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", run.Attempts)
	}
}

func TestFailureIsolation(t *testing.T) {
	f := newFixture(true, ana, beto, carla)
	f.ledger.failFor[beto] = true

	res, err := f.svc.RunForTenant(context.Background(), 1, day)
	if err != nil {
		t.Fatalf("RunForTenant: %v", err)
	}
	if res.Created != 2 || res.Failed != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Failures) != 1 {
		t.Fatalf("failures = %v", res.Failures)
	}

	// 部分失敗は DONE にしない（再実行で埋められるように）
	run, _ := f.runs.GetRun(context.Background(), 1, "2025-04-10")
	if run.Status != RunStatusFailed {
		t.Errorf("run status = %s, want FAILED", run.Status)
	}

	// 再実行で失敗分だけ作られる
	f.ledger.failFor[beto] = false
	res, err = f.svc.RunForTenant(context.Background(), 1, day)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if res.Created != 1 || res.Skipped != 2 {
		t.Fatalf("rerun result = %+v", res)
	}
}

func TestSweepNotifications(t *testing.T) {
	f := newFixture(true, ana, beto)
	f.ledger.existing[beto] = true

	if _, err := f.svc.RunForTenant(context.Background(), 1, day); err != nil {
		t.Fatalf("RunForTenant: %v", err)
	}

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	// 新規作成分だけ通知される
	if len(f.notifier.intents) != 1 {
		t.Fatalf("intents = %d, want 1", len(f.notifier.intents))
	}
	if f.notifier.intents[0].Attendable != ana {
		t.Errorf("intent for %+v", f.notifier.intents[0].Attendable)
	}
}

func TestRunWithRetry(t *testing.T) {
	f := newFixture(true, ana, beto)
	f.ledger.failFor[ana] = true

	go func() {
		// 最初の試行が失敗した後に回復させる
		time.Sleep(500 * time.Millisecond)
		f.ledger.mu.Lock()
		f.ledger.failFor[ana] = false
		f.ledger.mu.Unlock()
	}()

	res, err := f.svc.RunWithRetry(context.Background(), 1, day, 3)
	if err != nil {
		t.Fatalf("RunWithRetry: %v", err)
	}
	if res.Failed != 0 {
		t.Fatalf("result = %+v", res)
	}
	if f.ledger.inserted[ana] != attendance.EntryAbsent {
		t.Error("ana should be swept after retry")
	}
}
