package justification

import (
	"time"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
)

const (
	TypeAbsence   = "ABSENCE"
	TypeEarlyExit = "EARLY_EXIT"
	TypeLate      = "LATE"

	DateLayout = "2006-01-02"
)

func ValidType(t string) bool {
	return t == TypeAbsence || t == TypeEarlyExit || t == TypeLate
}

// Justification: 承認済みの欠席・早退・遅刻の事由。
// 自動削除はしない。取り消しは revoked_at を立てるだけ。
// 同一日・同一種別に複数あれば作成が新しいものが勝つ。
type Justification struct {
	JustificationID uint64
	ULID            string
	TenantID        uint64
	Attendable      roster.AttendableRef
	DateFrom        string // YYYY-MM-DD
	DateTo          string
	Type            string
	Reason          string
	CreatedBy       string
	CreatedAt       time.Time
	RevokedAt       *time.Time
}
