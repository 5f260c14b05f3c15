package justification

import "time"

type CreateJustificationRequest struct {
	AttendableType string `json:"attendable_type" binding:"required"` // STUDENT / TEACHER / STAFF
	AttendableID   uint64 `json:"attendable_id" binding:"required"`
	DateFrom       string `json:"date_from" binding:"required"` // YYYY-MM-DD
	DateTo         string `json:"date_to" binding:"required"`
	Type           string `json:"type" binding:"required"` // ABSENCE / EARLY_EXIT / LATE
	Reason         string `json:"reason"`
}

type JustificationResponse struct {
	ULID           string     `json:"ulid"`
	AttendableType string     `json:"attendable_type"`
	AttendableID   uint64     `json:"attendable_id"`
	DateFrom       string     `json:"date_from"`
	DateTo         string     `json:"date_to"`
	Type           string     `json:"type"`
	Reason         string     `json:"reason,omitempty"`
	CreatedBy      string     `json:"created_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
}

type ListFilter struct {
	Type           *string
	AttendableType *string
	AttendableID   *uint64
	From           *string
	To             *string
	IncludeRevoked bool
}

func toDTO(j Justification) JustificationResponse {
	return JustificationResponse{
		ULID:           j.ULID,
		AttendableType: string(j.Attendable.Type),
		AttendableID:   j.Attendable.ID,
		DateFrom:       j.DateFrom,
		DateTo:         j.DateTo,
		Type:           j.Type,
		Reason:         j.Reason,
		CreatedBy:      j.CreatedBy,
		CreatedAt:      j.CreatedAt,
		RevokedAt:      j.RevokedAt,
	}
}
