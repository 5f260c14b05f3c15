package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	mysql "github.com/go-sql-driver/mysql"

	platformdb "github.com/goncho07/PeeposAsistencia-sub001/internal/platform/db"
)

// ===== Error model (他featureと同型) =====

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		case CodeConflict:
			return 409
		default:
			return 500
		}
	}
	return 500
}

// ===== Service =====

// CalendarStore: サービスが必要とする読み取り面（テストでは偽物を注入）
type CalendarStore interface {
	EventsFor(ctx context.Context, tenantID uint64, date time.Time) ([]CalendarEvent, error)
	GetSetting(ctx context.Context, tenantID uint64, key string) (string, error)
	BimesterFor(ctx context.Context, tenantID uint64, date time.Time) (*Bimester, error)
}

type Service struct {
	db    *sql.DB
	store *Store
	cal   CalendarStore
}

func NewService(db *sql.DB) *Service {
	st := NewStore(db)
	return &Service{db: db, store: st, cal: st}
}

// NewServiceWithStore: テスト用
func NewServiceWithStore(cal CalendarStore) *Service {
	return &Service{cal: cal}
}

const SettingAttendanceWeekdays = "attendance_weekdays"

// IsWorkingDay: 登校日判定。
// 1) テナントの曜日設定（未設定なら月〜金）に含まれるか
// 2) 休業イベント（全体共通 or テナント固有）に覆われていないか
// 設定不備でもエラーにはしない（欠けたら既定値で判定）。
func (s *Service) IsWorkingDay(ctx context.Context, tenantID uint64, date time.Time) (bool, error) {
	raw, err := s.cal.GetSetting(ctx, tenantID, SettingAttendanceWeekdays)
	if err != nil {
		return false, err
	}
	if !weekdayEnabled(raw, date) {
		return false, nil
	}

	events, err := s.cal.EventsFor(ctx, tenantID, date)
	if err != nil {
		return false, err
	}
	for _, ev := range events {
		if !ev.Working {
			return false, nil
		}
	}
	return true, nil
}

// ResolveBimester: date を含むビメストレ。範囲外なら nil
func (s *Service) ResolveBimester(ctx context.Context, tenantID uint64, date time.Time) (*Bimester, error) {
	return s.cal.BimesterFor(ctx, tenantID, date)
}

// EventsOn: date を覆うイベント一覧。登校日判定と同じ照合（全体共通 + テナント固有、recurring は月日）
func (s *Service) EventsOn(ctx context.Context, tenantID uint64, date time.Time) ([]CalendarEvent, error) {
	return s.cal.EventsFor(ctx, tenantID, date)
}

// weekdayEnabled: "1,2,3,4,5" 形式（ISO曜日番号: 月=1..日=7）の判定
func weekdayEnabled(raw string, date time.Time) bool {
	if strings.TrimSpace(raw) == "" {
		raw = DefaultWeekdays
	}
	iso := int(date.Weekday())
	if iso == 0 {
		iso = 7 // time.Sunday = 0
	}
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if n == iso {
			return true
		}
	}
	return false
}

// ===== 年度セットアップ =====

// CreateAcademicYear: 年度とビメストレを一括登録。
// ビメストレは seq 順で隙間チェックはしないが、重複と順序逆転は弾く。
func (s *Service) CreateAcademicYear(ctx context.Context, tenantID uint64, in CreateAcademicYearRequest) (*AcademicYearResponse, error) {
	if err := validateAcademicYear(in); err != nil {
		return nil, err
	}

	var yearID uint64
	err := platformdb.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx platformdb.DBTX) error {
		id, err := s.store.InsertAcademicYear(ctx, tx, tenantID, in)
		if err != nil {
			return err
		}
		yearID = id
		for _, b := range in.Bimesters {
			if _, err := s.store.InsertBimester(ctx, tx, id, b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrConflict("academic year already exists")
		}
		return nil, err
	}

	return s.getYearResponse(ctx, tenantID, in.Year, yearID)
}

// validateAcademicYear: ビメストレは seq 順で隙間チェックはしないが、重複と順序逆転は弾く
func validateAcademicYear(in CreateAcademicYearRequest) error {
	ys, err := parseDate(in.StartDate)
	if err != nil {
		return ErrInvalid("start_date must be YYYY-MM-DD")
	}
	ye, err := parseDate(in.EndDate)
	if err != nil {
		return ErrInvalid("end_date must be YYYY-MM-DD")
	}
	if ye.Before(ys) {
		return ErrInvalid("end_date must be >= start_date")
	}
	if len(in.Bimesters) == 0 {
		return ErrInvalid("at least one bimester is required")
	}

	prevSeq := 0
	var prevEnd time.Time
	for i, b := range in.Bimesters {
		bs, err := parseDate(b.StartDate)
		if err != nil {
			return ErrInvalid("bimester start_date must be YYYY-MM-DD")
		}
		be, err := parseDate(b.EndDate)
		if err != nil {
			return ErrInvalid("bimester end_date must be YYYY-MM-DD")
		}
		if be.Before(bs) {
			return ErrInvalid("bimester end_date must be >= start_date")
		}
		if b.Seq <= prevSeq {
			return ErrInvalid("bimester seq must be strictly increasing")
		}
		if i > 0 && !bs.After(prevEnd) {
			return ErrConflict("bimester ranges must not overlap")
		}
		if bs.Before(ys) || be.After(ye) {
			return ErrInvalid("bimester range must be inside the academic year")
		}
		prevSeq = b.Seq
		prevEnd = be
	}
	return nil
}

// FinalizeAcademicYear: 年度締め（終端状態、以後更新不可）
func (s *Service) FinalizeAcademicYear(ctx context.Context, tenantID uint64, year int) error {
	n, err := s.store.FinalizeAcademicYear(ctx, tenantID, year)
	if err != nil {
		return err
	}
	if n == 0 {
		// 無い or 既に締め済み
		if _, err := s.store.GetAcademicYear(ctx, tenantID, year); err == sql.ErrNoRows {
			return ErrNotFound("academic year not found")
		}
		return ErrConflict("academic year already finalized")
	}
	return nil
}

func (s *Service) GetAcademicYear(ctx context.Context, tenantID uint64, year int) (*AcademicYearResponse, error) {
	y, err := s.store.GetAcademicYear(ctx, tenantID, year)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound("academic year not found")
	}
	if err != nil {
		return nil, err
	}
	return s.getYearResponse(ctx, tenantID, year, y.AcademicYearID)
}

func (s *Service) getYearResponse(ctx context.Context, tenantID uint64, year int, yearID uint64) (*AcademicYearResponse, error) {
	y, err := s.store.GetAcademicYear(ctx, tenantID, year)
	if err != nil {
		return nil, err
	}
	bs, err := s.store.ListBimesters(ctx, yearID)
	if err != nil {
		return nil, err
	}
	resp := AcademicYearResponse{
		AcademicYearID: y.AcademicYearID,
		Year:           y.Year,
		StartDate:      y.StartDate,
		EndDate:        y.EndDate,
		Finalized:      y.Finalized,
	}
	for _, b := range bs {
		resp.Bimesters = append(resp.Bimesters, BimesterResponse{
			BimesterID: b.BimesterID,
			Seq:        b.Seq,
			Name:       b.Name,
			StartDate:  b.StartDate,
			EndDate:    b.EndDate,
		})
	}
	return &resp, nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}
