package sweep

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/attendance"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/justification"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/notification"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
)

// ===== Error model =====

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeConflict:
			return 409
		default:
			return 500
		}
	}
	return 500
}

// ===== インターフェース群 =====

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

type CalendarResolver interface {
	IsWorkingDay(ctx context.Context, tenantID uint64, date time.Time) (bool, error)
}

type RosterReader interface {
	ListActive(ctx context.Context, tenantID uint64, date time.Time, f roster.Filter) ([]roster.Assignment, error)
}

type JustificationFinder interface {
	ActiveFor(ctx context.Context, tenantID uint64, ref roster.AttendableRef, date time.Time, jtype string) (*justification.Justification, error)
}

// Ledger: 台帳への「無ければ作る」書き込みだけを使う。
// 既存行（スキャン済み・スイープ済み）には一切触らない。
type Ledger interface {
	InsertAbsent(ctx context.Context, ulid string, tenantID uint64, ref roster.AttendableRef, date, entryStatus string) (bool, error)
}

// RunStore: 実行の冪等キー管理（テストでは偽物を注入）
type RunStore interface {
	Claim(ctx context.Context, ulid string, tenantID uint64, date string) (bool, error)
	Finish(ctx context.Context, tenantID uint64, date, status string, created, skipped, failed int, lastError string) error
	GetRun(ctx context.Context, tenantID uint64, date string) (*Run, error)
}

type Notifier interface {
	Enqueue(in notification.Intent)
}

// ===== Service本体 =====

type Service struct {
	runs     RunStore
	ledger   Ledger
	cal      CalendarResolver
	roster   RosterReader
	justif   JustificationFinder
	notifier Notifier
	id       IDGen
}

type Deps struct {
	Calendar CalendarResolver
	Roster   RosterReader
	Justif   JustificationFinder
	Ledger   Ledger
	Notifier Notifier
}

func NewService(db *sql.DB, deps Deps) *Service {
	return newService(NewStore(db), deps)
}

// NewServiceWithRuns: テスト用
func NewServiceWithRuns(runs RunStore, deps Deps) *Service {
	return newService(runs, deps)
}

func newService(runs RunStore, deps Deps) *Service {
	return &Service{
		runs:     runs,
		ledger:   deps.Ledger,
		cal:      deps.Calendar,
		roster:   deps.Roster,
		justif:   deps.Justif,
		notifier: deps.Notifier,
		id:       ulidGen{},
	}
}

// RunForTenant: 1テナント・1日分の欠席スイープ。
// スキャンの無い在籍者に ABSENT / ABSENT_JUSTIFIED 行を作る。
// 既に行がある者はスキップ（= 二重実行しても新規0件の冪等動作）。
// 個別の失敗は記録して続行し、バッチ全体は落とさない。
func (s *Service) RunForTenant(ctx context.Context, tenantID uint64, date time.Time) (*Result, error) {
	d := date.Format(DateLayout)
	res := &Result{SweptOn: d}

	working, err := s.cal.IsWorkingDay(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}
	res.Working = working
	if !working {
		// 休業日は対象外。実行記録も残さない
		return res, nil
	}

	runULID, err := s.id.New()
	if err != nil {
		return nil, err
	}
	claimed, err := s.runs.Claim(ctx, runULID, tenantID, d)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrConflict("sweep already running for " + d)
	}

	active, err := s.roster.ListActive(ctx, tenantID, date, roster.Filter{})
	if err != nil {
		_ = s.runs.Finish(ctx, tenantID, d, RunStatusFailed, 0, 0, 0, err.Error())
		return nil, err
	}

	for _, a := range active {
		created, err := s.sweepOne(ctx, tenantID, a.Ref, date, d)
		if err != nil {
			res.Failed++
			res.Failures = append(res.Failures, fmt.Sprintf("%s/%d: %v", a.Ref.Type, a.Ref.ID, err))
			log.Printf("[WARN] sweep tenant=%d %s/%d failed: %v", tenantID, a.Ref.Type, a.Ref.ID, err)
			continue
		}
		if created {
			res.Created++
		} else {
			res.Skipped++
		}
	}

	status := RunStatusDone
	lastErr := ""
	if res.Failed > 0 {
		// 部分失敗。DONE にはせず再実行で埋められるようにする
		status = RunStatusFailed
		lastErr = res.Failures[len(res.Failures)-1]
	}
	if err := s.runs.Finish(ctx, tenantID, d, status, res.Created, res.Skipped, res.Failed, lastErr); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) sweepOne(ctx context.Context, tenantID uint64, ref roster.AttendableRef, date time.Time, d string) (bool, error) {
	status := attendance.EntryAbsent
	j, err := s.justif.ActiveFor(ctx, tenantID, ref, date, justification.TypeAbsence)
	if err != nil {
		return false, err
	}
	if j != nil {
		status = attendance.EntryAbsentJustified
	}

	recULID, err := s.id.New()
	if err != nil {
		return false, err
	}
	created, err := s.ledger.InsertAbsent(ctx, recULID, tenantID, ref, d, status)
	if err != nil {
		return false, err
	}
	if created && s.notifier != nil {
		s.notifier.Enqueue(notification.Intent{
			TenantID:   tenantID,
			Attendable: ref,
			RecordULID: recULID,
			Kind:       "SWEEP",
			Status:     status,
			Date:       d,
		})
	}
	return created, nil
}

// RunWithRetry: 失敗時は指数バックオフで繰り返す（スケジューラ・バックフィル用）
func (s *Service) RunWithRetry(ctx context.Context, tenantID uint64, date time.Time, maxRetries int) (*Result, error) {
	backoff := time.Second
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
		res, err := s.RunForTenant(ctx, tenantID, date)
		if err == nil && res.Failed == 0 {
			return res, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("%d attendables failed", res.Failed)
		}
		log.Printf("[WARN] sweep tenant=%d date=%s attempt=%d: %v", tenantID, date.Format(DateLayout), attempt+1, lastErr)
	}
	return nil, lastErr
}

// RunStatus: 実行状態の参照（handler用）
func (s *Service) RunStatus(ctx context.Context, tenantID uint64, date string) (*Run, error) {
	return s.runs.GetRun(ctx, tenantID, date)
}
