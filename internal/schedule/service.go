package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
)

// ===== Error model =====

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeConfigMissing   Code = "CONFIG_MISSING"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string          { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError      { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrConfigMissing(msg string) *APIError {
	return &APIError{Code: CodeConfigMissing, Message: msg}
}

// IsConfigMissing: 呼び出し側（分類器）が CONFIG_MISSING を見分けるために使う
func IsConfigMissing(err error) bool {
	var api *APIError
	return errors.As(err, &api) && api.Code == CodeConfigMissing
}

// ===== Service =====

// SettingsStore: 設定の読み取り面（テストでは偽物を注入）
type SettingsStore interface {
	Get(ctx context.Context, tenantID uint64, key string) (string, error)
}

type Service struct {
	settings SettingsStore
	store    *Store // 書き込み系（handler用）
}

func NewService(store *Store) *Service {
	return &Service{settings: store, store: store}
}

// NewResolver: テスト用
func NewResolver(settings SettingsStore) *Service {
	return &Service{settings: settings}
}

// Resolve: 対象者に適用される時間枠を解決する。
// 所属教室の shift + level → 設定キー {level}_{shift}_{entry|exit} → shift 未設定なら morning。
// level が決まらない場合と設定キーが無い場合は CONFIG_MISSING（黙って既定値にしない）。
func (s *Service) Resolve(ctx context.Context, tenantID uint64, a *roster.Assignment) (*Window, error) {
	if a == nil || a.Level == "" {
		return nil, ErrConfigMissing("attendable has no level assignment (no classroom?)")
	}
	if !ValidLevel(a.Level) {
		return nil, ErrConfigMissing("unknown level: " + a.Level)
	}

	shift := a.Shift
	if shift == "" {
		// シフト未設定は午前枠にフォールバック
		shift = ShiftMorning
	}

	entryKey := fmt.Sprintf("%s_%s_entry", a.Level, shift)
	exitKey := fmt.Sprintf("%s_%s_exit", a.Level, shift)

	entryRaw, err := s.settings.Get(ctx, tenantID, entryKey)
	if err != nil {
		return nil, err
	}
	exitRaw, err := s.settings.Get(ctx, tenantID, exitKey)
	if err != nil {
		return nil, err
	}
	if entryRaw == "" || exitRaw == "" {
		return nil, ErrConfigMissing(fmt.Sprintf("schedule window not configured: %s / %s", entryKey, exitKey))
	}

	entry, err := ParseClock(entryRaw)
	if err != nil {
		return nil, ErrConfigMissing(fmt.Sprintf("setting %s is not HH:MM: %q", entryKey, entryRaw))
	}
	exit, err := ParseClock(exitRaw)
	if err != nil {
		return nil, ErrConfigMissing(fmt.Sprintf("setting %s is not HH:MM: %q", exitKey, exitRaw))
	}

	tol, err := s.tolerance(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &Window{
		Level:     a.Level,
		Shift:     shift,
		Entry:     entry,
		Exit:      exit,
		Tolerance: tol,
	}, nil
}

// LastExitClock: テナントの設定済み最終下校時刻（スイープの起動判定に使う）。
// 1件も設定が無ければ ok=false。
func (s *Service) LastExitClock(ctx context.Context, tenantID uint64) (ClockTime, bool, error) {
	last := ClockTime{}
	found := false
	for _, level := range []string{LevelInicial, LevelPrimaria, LevelSecundaria} {
		for _, shift := range []string{ShiftMorning, ShiftAfternoon} {
			raw, err := s.settings.Get(ctx, tenantID, fmt.Sprintf("%s_%s_exit", level, shift))
			if err != nil {
				return ClockTime{}, false, err
			}
			if raw == "" {
				continue
			}
			ct, err := ParseClock(raw)
			if err != nil {
				continue
			}
			if !found || ct.Hour*60+ct.Minute > last.Hour*60+last.Minute {
				last = ct
				found = true
			}
		}
	}
	return last, found, nil
}

func (s *Service) tolerance(ctx context.Context, tenantID uint64) (time.Duration, error) {
	raw, err := s.settings.Get(ctx, tenantID, SettingTolerance)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return DefaultToleranceMinutes * time.Minute, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return DefaultToleranceMinutes * time.Minute, nil
	}
	return time.Duration(n) * time.Minute, nil
}
