package attendance

import (
	"database/sql"
	"time"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
)

// 入場ステータス。ABSENT 系はスイープだけが設定する
const (
	EntryPresent         = "PRESENT"
	EntryLate            = "LATE"
	EntryAbsent          = "ABSENT"
	EntryAbsentJustified = "ABSENT_JUSTIFIED"
)

// 退場ステータス。NOT_EXITED が既定値
const (
	ExitComplete       = "COMPLETE"
	ExitEarly          = "EARLY_EXIT"
	ExitEarlyJustified = "EARLY_EXIT_JUSTIFIED"
	ExitNotExited      = "NOT_EXITED"
)

// スキャン種別
const (
	KindEntry = "ENTRY"
	KindExit  = "EXIT"
)

// 1人1日1行の出欠レコード。
// キーは (tenant_id, attendable_type, attendable_id, date) で UNIQUE。
// entry 側・exit 側はそれぞれ一度しか書けない（書けたら不変）。
type Record struct {
	RecordID    uint64
	ULID        string
	TenantID    uint64
	Attendable  roster.AttendableRef
	Date        string // YYYY-MM-DD
	EntryTime   *time.Time
	EntryStatus *string // 未記録なら nil
	ExitTime    *time.Time
	ExitStatus  string
	Anomaly     bool // 入場記録なしの退場スキャン等
	RecordedBy  string
	DeviceType  string
	Notified    bool
	CreatedAt   time.Time
}

// DB行（スキャン用）
type recordRow struct {
	RecordID    uint64
	ULID        string
	TenantID    uint64
	Type        string
	AttendID    uint64
	Date        string
	EntryTime   sql.NullTime
	EntryStatus sql.NullString
	ExitTime    sql.NullTime
	ExitStatus  string
	Anomaly     bool
	RecordedBy  sql.NullString
	DeviceType  sql.NullString
	Notified    bool
	CreatedAt   time.Time
}

func (r recordRow) toModel() Record {
	rec := Record{
		RecordID:   r.RecordID,
		ULID:       r.ULID,
		TenantID:   r.TenantID,
		Attendable: roster.AttendableRef{Type: roster.AttendableType(r.Type), ID: r.AttendID},
		Date:       r.Date,
		ExitStatus: r.ExitStatus,
		Anomaly:    r.Anomaly,
		Notified:   r.Notified,
		CreatedAt:  r.CreatedAt.UTC(),
	}
	if r.EntryTime.Valid {
		t := r.EntryTime.Time.UTC()
		rec.EntryTime = &t
	}
	if r.EntryStatus.Valid {
		s := r.EntryStatus.String
		rec.EntryStatus = &s
	}
	if r.ExitTime.Valid {
		t := r.ExitTime.Time.UTC()
		rec.ExitTime = &t
	}
	if r.RecordedBy.Valid {
		rec.RecordedBy = r.RecordedBy.String
	}
	if r.DeviceType.Valid {
		rec.DeviceType = r.DeviceType.String
	}
	return rec
}
