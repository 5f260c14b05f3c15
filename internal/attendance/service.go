package attendance

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/justification"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/notification"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/platform/keylock"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/schedule"
)

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

// CalendarResolver: 登校日判定（calendar.Service が実装）
type CalendarResolver interface {
	IsWorkingDay(ctx context.Context, tenantID uint64, date time.Time) (bool, error)
}

// WindowResolver: 時間枠解決（schedule.Service が実装）
type WindowResolver interface {
	Resolve(ctx context.Context, tenantID uint64, a *roster.Assignment) (*schedule.Window, error)
}

// AssignmentReader: 対象者の所属参照（roster.Store が実装）
type AssignmentReader interface {
	GetAssignment(ctx context.Context, tenantID uint64, ref roster.AttendableRef) (*roster.Assignment, error)
}

// JustificationFinder: 事由の参照（justification.Store が実装）
type JustificationFinder interface {
	ActiveFor(ctx context.Context, tenantID uint64, ref roster.AttendableRef, date time.Time, jtype string) (*justification.Justification, error)
}

// Notifier: 通知インテントの投入口（ベストエフォート）
type Notifier interface {
	Enqueue(in notification.Intent)
}

// Ledger: 台帳の書き込み面（テストでは偽物を注入）
type Ledger interface {
	CreateIfMissing(ctx context.Context, ulid string, tenantID uint64, ref roster.AttendableRef, date string) (bool, error)
	GetByKey(ctx context.Context, tenantID uint64, ref roster.AttendableRef, date string) (*Record, error)
	SetEntry(ctx context.Context, tenantID uint64, ref roster.AttendableRef, date string, t time.Time, status, recordedBy, deviceType string) (bool, error)
	SetExit(ctx context.Context, tenantID uint64, ref roster.AttendableRef, date string, t time.Time, status string, anomaly bool, recordedBy, deviceType string) (bool, error)
}

// ===== Service本体 =====

type Service struct {
	store  *Store // 読み取り系（handler用）
	ledger Ledger

	cal      CalendarResolver
	windows  WindowResolver
	roster   AssignmentReader
	justif   JustificationFinder
	notifier Notifier

	locks *keylock.KeyLock
	loc   *time.Location // スキャン時刻→日付の変換に使うテナント地域のTZ
	clock Clock
	id    IDGen
}

type Deps struct {
	Calendar CalendarResolver
	Windows  WindowResolver
	Roster   AssignmentReader
	Justif   JustificationFinder
	Notifier Notifier
	Location *time.Location
}

func NewService(db *sql.DB, deps Deps) *Service {
	st := NewStore(db)
	return newService(st, st, deps)
}

// NewServiceWithLedger: テスト用
func NewServiceWithLedger(ledger Ledger, deps Deps) *Service {
	return newService(nil, ledger, deps)
}

func newService(st *Store, ledger Ledger, deps Deps) *Service {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:    st,
		ledger:   ledger,
		cal:      deps.Calendar,
		windows:  deps.Windows,
		roster:   deps.Roster,
		justif:   deps.Justif,
		notifier: deps.Notifier,
		locks:    keylock.New(),
		loc:      loc,
		clock:    realClock{},
		id:       ulidGen{},
	}
}

// WithClock: テスト用
func (s *Service) WithClock(c Clock) *Service {
	s.clock = c
	return s
}

type ScanInput struct {
	TenantID   uint64
	Ref        roster.AttendableRef
	Kind       string
	At         time.Time
	RecordedBy string
	DeviceType string
}

// ClassifyScan: 1件のスキャンを分類して台帳に反映する。
//
//  1. 休業日なら NOT_AN_ATTENDANCE_DAY（何も記録しない）
//  2. キー単位のロックを取る（2秒で諦めて BUSY）
//  3. 時間枠を解決（できなければ CONFIG_MISSING）
//  4. 行を get-or-create し、該当の半分を1回だけ書く（二重なら ALREADY_RECORDED）
//  5. 成功したら通知インテントを投入（失敗しても分類は巻き戻さない）
func (s *Service) ClassifyScan(ctx context.Context, in ScanInput) (*Record, error) {
	if !in.Ref.Type.Valid() {
		return nil, ErrInvalid("attendable_type must be STUDENT, TEACHER or STAFF")
	}
	if in.Kind != KindEntry && in.Kind != KindExit {
		return nil, ErrInvalid("kind must be ENTRY or EXIT")
	}
	if in.At.IsZero() {
		in.At = s.clock.Now()
	}

	// 日付はテナント地域の壁時計で決める
	at := in.At.In(s.loc)
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, s.loc)
	date := day.Format(DateLayout)

	working, err := s.cal.IsWorkingDay(ctx, in.TenantID, day)
	if err != nil {
		return nil, err
	}
	if !working {
		return nil, ErrNotAnAttendanceDay(date + " is not an attendance day")
	}

	// ここから台帳への書き込み。キー単位で直列化する
	release, err := s.locks.Acquire(ctx, lockKey(in.TenantID, in.Ref, date), LockTimeout)
	if err != nil {
		return nil, ErrBusy("another scan for the same person is in progress")
	}
	defer release()

	assignment, err := s.roster.GetAssignment(ctx, in.TenantID, in.Ref)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound("attendable not found")
		}
		return nil, err
	}

	window, err := s.windows.Resolve(ctx, in.TenantID, assignment)
	if err != nil {
		if schedule.IsConfigMissing(err) {
			return nil, ErrConfigMissing(err.Error())
		}
		return nil, err
	}

	newULID, err := s.id.New()
	if err != nil {
		return nil, err
	}
	if _, err := s.ledger.CreateIfMissing(ctx, newULID, in.TenantID, in.Ref, date); err != nil {
		return nil, err
	}

	var status string
	switch in.Kind {
	case KindEntry:
		status = s.classifyEntry(at, day, window)
		ok, err := s.ledger.SetEntry(ctx, in.TenantID, in.Ref, date, at, status, in.RecordedBy, in.DeviceType)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAlreadyRecorded("entry already registered for " + date)
		}
	case KindExit:
		rec, err := s.ledger.GetByKey(ctx, in.TenantID, in.Ref, date)
		if err != nil {
			return nil, err
		}
		if rec.ExitTime != nil {
			return nil, ErrAlreadyRecorded("exit already registered for " + date)
		}
		status, err = s.classifyExit(ctx, in.TenantID, in.Ref, at, day, window)
		if err != nil {
			return nil, err
		}
		// 入場記録の無い退場は受け付けるが異常としてマークする（横の出入口など）
		anomaly := rec.EntryTime == nil && rec.EntryStatus == nil
		ok, err := s.ledger.SetExit(ctx, in.TenantID, in.Ref, date, at, status, anomaly, in.RecordedBy, in.DeviceType)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAlreadyRecorded("exit already registered for " + date)
		}
	}

	rec, err := s.ledger.GetByKey(ctx, in.TenantID, in.Ref, date)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Enqueue(notification.Intent{
			TenantID:   in.TenantID,
			Attendable: in.Ref,
			RecordULID: rec.ULID,
			Kind:       in.Kind,
			Status:     status,
			Date:       date,
		})
	}
	return rec, nil
}

// classifyEntry: 予定時刻 + 許容分 まで（境界を含む）は PRESENT、超えたら LATE
func (s *Service) classifyEntry(at, day time.Time, w *schedule.Window) string {
	deadline := w.Entry.On(day).Add(w.Tolerance)
	if !at.After(deadline) {
		return EntryPresent
	}
	return EntryLate
}

// classifyExit: 予定時刻 - 許容分 以降（境界を含む）は COMPLETE。
// 早い場合は EARLY_EXIT 事由があれば EARLY_EXIT_JUSTIFIED、なければ EARLY_EXIT
func (s *Service) classifyExit(ctx context.Context, tenantID uint64, ref roster.AttendableRef, at, day time.Time, w *schedule.Window) (string, error) {
	threshold := w.Exit.On(day).Add(-w.Tolerance)
	if !at.Before(threshold) {
		return ExitComplete, nil
	}
	j, err := s.justif.ActiveFor(ctx, tenantID, ref, day, justification.TypeEarlyExit)
	if err != nil {
		// 事由の照会失敗で分類を止めない（厳しい方に倒す）
		log.Printf("[WARN] justification lookup failed: %v", err)
		return ExitEarly, nil
	}
	if j != nil {
		return ExitEarlyJustified, nil
	}
	return ExitEarly, nil
}

// ===== 読み取り系（handler用） =====

func (s *Service) List(ctx context.Context, tenantID uint64, q ListQuery) ([]RecordResponse, int64, error) {
	rows, total, err := s.store.List(ctx, tenantID, q)
	if err != nil {
		return nil, 0, err
	}
	out := make([]RecordResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, toDTO(r))
	}
	return out, total, nil
}

func (s *Service) GetByULID(ctx context.Context, tenantID uint64, ulidStr string) (*RecordResponse, error) {
	rec, err := s.store.GetByULID(ctx, tenantID, ulidStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound("record not found")
		}
		return nil, err
	}
	resp := toDTO(*rec)
	return &resp, nil
}

func lockKey(tenantID uint64, ref roster.AttendableRef, date string) string {
	return fmt.Sprintf("%d:%s:%d:%s", tenantID, ref.Type, ref.ID, date)
}
