package calendar

const (
	DateLayout = "2006-01-02"

	// attendance_weekdays 設定の既定値（ISO曜日番号、月〜金）
	DefaultWeekdays = "1,2,3,4,5"
)

type BimesterInput struct {
	Seq       int    `json:"seq" binding:"required"`
	Name      string `json:"name" binding:"required"`
	StartDate string `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate   string `json:"end_date" binding:"required"`
}

type CreateAcademicYearRequest struct {
	Year      int             `json:"year" binding:"required"`
	StartDate string          `json:"start_date" binding:"required"`
	EndDate   string          `json:"end_date" binding:"required"`
	Bimesters []BimesterInput `json:"bimesters" binding:"required"`
}

type AcademicYearResponse struct {
	AcademicYearID uint64             `json:"academic_year_id"`
	Year           int                `json:"year"`
	StartDate      string             `json:"start_date"`
	EndDate        string             `json:"end_date"`
	Finalized      bool               `json:"finalized"`
	Bimesters      []BimesterResponse `json:"bimesters"`
}

type BimesterResponse struct {
	BimesterID uint64 `json:"bimester_id"`
	Seq        int    `json:"seq"`
	Name       string `json:"name"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

type WorkingDayResponse struct {
	Date       string            `json:"date"`
	Working    bool              `json:"working"`
	Bimester   *BimesterResponse `json:"bimester,omitempty"`
}

type EventResponse struct {
	EventID   uint64 `json:"event_id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Working   bool   `json:"working"`
	Recurring bool   `json:"recurring"`
	Global    bool   `json:"global"`
}
