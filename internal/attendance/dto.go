package attendance

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
	DateLayout       = "2006-01-02"

	// ロック取得の上限。スキャナは対話的なので長く待たせない
	LockTimeout = 2 * time.Second
)

type ScanRequest struct {
	AttendableType string  `json:"attendable_type" binding:"required"` // STUDENT / TEACHER / STAFF
	AttendableID   uint64  `json:"attendable_id" binding:"required"`
	Kind           string  `json:"kind" binding:"required"` // ENTRY / EXIT
	Timestamp      *string `json:"timestamp,omitempty"`     // RFC3339。未指定ならサーバ時刻
	DeviceType     string  `json:"device_type"`             // qr_scanner / manual / ...
}

type RecordResponse struct {
	ULID           string     `json:"ulid"`
	AttendableType string     `json:"attendable_type"`
	AttendableID   uint64     `json:"attendable_id"`
	Date           string     `json:"date"`
	EntryTime      *time.Time `json:"entry_time,omitempty"`
	EntryStatus    *string    `json:"entry_status,omitempty"`
	ExitTime       *time.Time `json:"exit_time,omitempty"`
	ExitStatus     string     `json:"exit_status"`
	Anomaly        bool       `json:"anomaly,omitempty"`
	RecordedBy     string     `json:"recorded_by,omitempty"`
	DeviceType     string     `json:"device_type,omitempty"`
	Notified       bool       `json:"notified"`
}

type ListQuery struct {
	AttendableType *string
	AttendableID   *uint64
	On             *string
	From           *string
	To             *string
	EntryStatus    *string
	Limit          int
	Offset         int
}

func toDTO(r Record) RecordResponse {
	return RecordResponse{
		ULID:           r.ULID,
		AttendableType: string(r.Attendable.Type),
		AttendableID:   r.Attendable.ID,
		Date:           r.Date,
		EntryTime:      r.EntryTime,
		EntryStatus:    r.EntryStatus,
		ExitTime:       r.ExitTime,
		ExitStatus:     r.ExitStatus,
		Anomaly:        r.Anomaly,
		RecordedBy:     r.RecordedBy,
		DeviceType:     r.DeviceType,
		Notified:       r.Notified,
	}
}
