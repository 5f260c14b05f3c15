package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/attendance"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/calendar"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
)

// ===== Error model =====

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		default:
			return 500
		}
	}
	return 500
}

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type CalendarResolver interface {
	IsWorkingDay(ctx context.Context, tenantID uint64, date time.Time) (bool, error)
	ResolveBimester(ctx context.Context, tenantID uint64, date time.Time) (*calendar.Bimester, error)
}

type RosterReader interface {
	ListActive(ctx context.Context, tenantID uint64, date time.Time, f roster.Filter) ([]roster.Assignment, error)
}

// RecordSource: 台帳の読み取り面（テストでは偽物を注入）
type RecordSource interface {
	FetchRange(ctx context.Context, tenantID uint64, from, to string) (map[RowKey]Row, error)
}

// ===== Service本体 =====

// 集計は読み取り専用。台帳は一切変更しない。
// スイープ未実行の過去日は ABSENT とみなす（行の有無に依存しない防御的集計）。
type Service struct {
	records RecordSource
	cal     CalendarResolver
	roster  RosterReader
	loc     *time.Location
	clock   Clock
}

type Deps struct {
	Calendar CalendarResolver
	Roster   RosterReader
	Location *time.Location
}

func NewService(db *sql.DB, deps Deps) *Service {
	return NewServiceWithSource(NewStore(db), deps)
}

// NewServiceWithSource: テスト用
func NewServiceWithSource(records RecordSource, deps Deps) *Service {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		records: records,
		cal:     deps.Calendar,
		roster:  deps.Roster,
		loc:     loc,
		clock:   realClock{},
	}
}

// WithClock: テスト用
func (s *Service) WithClock(c Clock) *Service {
	s.clock = c
	return s
}

// Aggregate: 期間×絞り込み条件の出欠統計。
// 登校日（カレンダー準拠）×在籍者だけを分母に数える。
// 当日・未来日は分母から除外（スイープ前の日を欠席扱いにしないため）。
func (s *Service) Aggregate(ctx context.Context, tenantID uint64, from, to time.Time, f Filters) (*Statistics, error) {
	if to.Before(from) {
		return nil, ErrInvalid("to must be >= from")
	}

	stats := &Statistics{
		From: from.Format(DateLayout),
		To:   to.Format(DateLayout),
	}

	rows, err := s.records.FetchRange(ctx, tenantID, stats.From, stats.To)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	perAttendable := map[roster.AttendableRef]*AttendableStats{}
	var order []roster.AttendableRef

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		// 当日以降は集計対象外
		if !day.Before(today) {
			continue
		}
		working, err := s.cal.IsWorkingDay(ctx, tenantID, day)
		if err != nil {
			return nil, err
		}
		if !working {
			continue
		}
		stats.WorkingDays++

		active, err := s.roster.ListActive(ctx, tenantID, day, f.toRoster())
		if err != nil {
			return nil, err
		}

		d := day.Format(DateLayout)
		for _, a := range active {
			st, ok := perAttendable[a.Ref]
			if !ok {
				st = &AttendableStats{
					AttendableType: string(a.Ref.Type),
					AttendableID:   a.Ref.ID,
					FullName:       a.FullName,
					Level:          a.Level,
					Grade:          a.Grade,
					Section:        a.Section,
					Shift:          a.Shift,
				}
				perAttendable[a.Ref] = st
				order = append(order, a.Ref)
			}

			row, found := rows[RowKey{Type: string(a.Ref.Type), ID: a.Ref.ID, Date: d}]
			c := countDay(row, found)
			st.Counts.add(c)
			stats.Totals.add(c)
		}
	}

	stats.Attendables = make([]AttendableStats, 0, len(order))
	for _, ref := range order {
		stats.Attendables = append(stats.Attendables, *perAttendable[ref])
	}
	return stats, nil
}

// countDay: 1人1日分のカウント。行が無い過去日は ABSENT 扱い
func countDay(row Row, found bool) Counts {
	c := Counts{ExpectedDays: 1}
	if !found {
		c.Absent++
		return c
	}

	if row.EntryStatus == nil {
		// 退場だけ記録された行（異常フラグ付き）。入場側は欠席として数える
		c.Absent++
	} else {
		switch *row.EntryStatus {
		case attendance.EntryPresent:
			c.Present++
		case attendance.EntryLate:
			c.Late++
		case attendance.EntryAbsent:
			c.Absent++
		case attendance.EntryAbsentJustified:
			c.AbsentJustified++
		}
	}

	switch row.ExitStatus {
	case attendance.ExitEarly:
		c.EarlyExit++
	case attendance.ExitEarlyJustified:
		c.EarlyExitJustified++
	case attendance.ExitNotExited:
		c.NotExited++
	}
	if row.Anomaly {
		c.Anomalies++
	}
	return c
}

// ResolveBimesterRange: ?bimester= 指定を日付範囲に変換する
func (s *Service) ResolveBimesterRange(ctx context.Context, tenantID uint64, date time.Time) (time.Time, time.Time, error) {
	b, err := s.cal.ResolveBimester(ctx, tenantID, date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if b == nil {
		return time.Time{}, time.Time{}, ErrNotFound("no bimester covers " + date.Format(DateLayout))
	}
	from, err := time.ParseInLocation(DateLayout, b.StartDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.ParseInLocation(DateLayout, b.EndDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
