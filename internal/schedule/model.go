package schedule

import "time"

const (
	LevelInicial    = "inicial"
	LevelPrimaria   = "primaria"
	LevelSecundaria = "secundaria"

	ShiftMorning   = "morning"
	ShiftAfternoon = "afternoon"

	// tenant_settings のキー形式: {level}_{shift}_{entry|exit}
	SettingTolerance = "tolerance_minutes"

	DefaultToleranceMinutes = 5
	TimeLayout              = "15:04"
)

func ValidLevel(l string) bool {
	return l == LevelInicial || l == LevelPrimaria || l == LevelSecundaria
}

// Window: ある対象者に適用される登下校の時間枠。
// Entry/Exit は「分単位の時刻」（日付は持たない）。
type Window struct {
	Level     string
	Shift     string
	Entry     ClockTime
	Exit      ClockTime
	Tolerance time.Duration
}

// ClockTime: "HH:MM" の壁時計時刻。日付と組み合わせて使う
type ClockTime struct {
	Hour   int
	Minute int
}

func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return ClockTime{}, err
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// On: date の日の当該時刻を返す（タイムゾーンは date のものを引き継ぐ）
func (ct ClockTime) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), ct.Hour, ct.Minute, 0, 0, date.Location())
}

func (ct ClockTime) String() string {
	return time.Date(0, 1, 1, ct.Hour, ct.Minute, 0, 0, time.UTC).Format(TimeLayout)
}
