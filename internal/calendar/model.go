package calendar

import "time"

// 学年度。テナントごとに1年度1行。finalized になったら以後変更不可。
type AcademicYear struct {
	AcademicYearID uint64
	TenantID       uint64
	Year           int
	StartDate      string // YYYY-MM-DD
	EndDate        string
	Finalized      bool
}

// ビメストレ（2ヶ月区切りの学期）。年度内で順序付き・範囲重複なし。
type Bimester struct {
	BimesterID     uint64
	AcademicYearID uint64
	Seq            int
	Name           string
	StartDate      string
	EndDate        string
}

// 休業日・行事イベント。tenant_id が NULL なら全テナント共通（国民の祝日など）。
// recurring のものは月日だけを見て毎年再適用する。
type CalendarEvent struct {
	EventID   uint64
	TenantID  *uint64
	Name      string
	StartDate string
	EndDate   string
	Working   bool // false = 休業日
	Recurring bool
}

// DB行（スキャン用）
type eventRow struct {
	EventID   uint64
	TenantID  *uint64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Working   bool
	Recurring bool
}

func (r eventRow) toModel() CalendarEvent {
	return CalendarEvent{
		EventID:   r.EventID,
		TenantID:  r.TenantID,
		Name:      r.Name,
		StartDate: r.StartDate.Format(DateLayout),
		EndDate:   r.EndDate.Format(DateLayout),
		Working:   r.Working,
		Recurring: r.Recurring,
	}
}
