package report

import "github.com/goncho07/PeeposAsistencia-sub001/internal/roster"

const DateLayout = "2006-01-02"

// Counts: ステータス別の件数。ExpectedDays が分母（登校日 × 在籍日のみ）
type Counts struct {
	Present            int `json:"present"`
	Late               int `json:"late"`
	Absent             int `json:"absent"`
	AbsentJustified    int `json:"absent_justified"`
	EarlyExit          int `json:"early_exit"`
	EarlyExitJustified int `json:"early_exit_justified"`
	NotExited          int `json:"not_exited"`
	Anomalies          int `json:"anomalies"`
	ExpectedDays       int `json:"expected_days"`
}

func (c *Counts) add(o Counts) {
	c.Present += o.Present
	c.Late += o.Late
	c.Absent += o.Absent
	c.AbsentJustified += o.AbsentJustified
	c.EarlyExit += o.EarlyExit
	c.EarlyExitJustified += o.EarlyExitJustified
	c.NotExited += o.NotExited
	c.Anomalies += o.Anomalies
	c.ExpectedDays += o.ExpectedDays
}

type AttendableStats struct {
	AttendableType string `json:"attendable_type"`
	AttendableID   uint64 `json:"attendable_id"`
	FullName       string `json:"full_name"`
	Level          string `json:"level,omitempty"`
	Grade          string `json:"grade,omitempty"`
	Section        string `json:"section,omitempty"`
	Shift          string `json:"shift,omitempty"`
	Counts         Counts `json:"counts"`
}

type Statistics struct {
	From        string            `json:"from"`
	To          string            `json:"to"`
	WorkingDays int               `json:"working_days"` // 範囲内の登校日数（未来日は除外済み）
	Totals      Counts            `json:"totals"`
	Attendables []AttendableStats `json:"attendables"`
}

// Filters: level/grade/section/shift/type の絞り込み
type Filters struct {
	Type    *roster.AttendableType
	Level   *string
	Grade   *string
	Section *string
	Shift   *string
}

func (f Filters) toRoster() roster.Filter {
	return roster.Filter{
		Type:    f.Type,
		Level:   f.Level,
		Grade:   f.Grade,
		Section: f.Section,
		Shift:   f.Shift,
	}
}
