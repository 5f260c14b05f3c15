package justification

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

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

// ===== Service =====

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

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// JustificationStore: サービスが使う永続面（テストでは偽物を注入）
type JustificationStore interface {
	Insert(ctx context.Context, j *Justification) error
	List(ctx context.Context, tenantID uint64, f ListFilter) ([]Justification, error)
	Revoke(ctx context.Context, tenantID uint64, ulidStr string) (int64, error)
}

type Service struct {
	store  JustificationStore
	finder *Store
	id     IDGen
	clock  Clock
}

func NewService(db *sql.DB) *Service {
	st := NewStore(db)
	return &Service{store: st, finder: st, id: ulidGen{}, clock: realClock{}}
}

// Finder: スイープ・分類器から使う読み取り面を返す
func (s *Service) Finder() *Store { return s.finder }

func (s *Service) Create(ctx context.Context, tenantID uint64, createdBy string, req CreateJustificationRequest) (*JustificationResponse, error) {
	ref := roster.AttendableRef{Type: roster.AttendableType(req.AttendableType), ID: req.AttendableID}
	if !ref.Type.Valid() {
		return nil, ErrInvalid("attendable_type must be STUDENT, TEACHER or STAFF")
	}
	if !ValidType(req.Type) {
		return nil, ErrInvalid("type must be ABSENCE, EARLY_EXIT or LATE")
	}
	from, err := time.ParseInLocation(DateLayout, req.DateFrom, time.UTC)
	if err != nil {
		return nil, ErrInvalid("date_from must be YYYY-MM-DD")
	}
	to, err := time.ParseInLocation(DateLayout, req.DateTo, time.UTC)
	if err != nil {
		return nil, ErrInvalid("date_to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, ErrInvalid("date_to must be >= date_from")
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}

	j := Justification{
		ULID:       idStr,
		TenantID:   tenantID,
		Attendable: ref,
		DateFrom:   req.DateFrom,
		DateTo:     req.DateTo,
		Type:       req.Type,
		Reason:     req.Reason,
		CreatedBy:  createdBy,
	}
	if err := s.store.Insert(ctx, &j); err != nil {
		return nil, err
	}
	// DB側は NOW(6)。応答用のタイムスタンプだけここで刻む
	j.CreatedAt = s.clock.Now().UTC()

	resp := toDTO(j)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, tenantID uint64, f ListFilter) ([]JustificationResponse, error) {
	rows, err := s.store.List(ctx, tenantID, f)
	if err != nil {
		return nil, err
	}
	out := make([]JustificationResponse, 0, len(rows))
	for _, j := range rows {
		out = append(out, toDTO(j))
	}
	return out, nil
}

func (s *Service) Revoke(ctx context.Context, tenantID uint64, ulidStr string) error {
	n, err := s.store.Revoke(ctx, tenantID, ulidStr)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound("justification not found or already revoked")
	}
	return nil
}
