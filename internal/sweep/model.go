package sweep

import "time"

const (
	DateLayout = "2006-01-02"

	RunStatusRunning = "RUNNING"
	RunStatusDone    = "DONE"
	RunStatusFailed  = "FAILED"
)

// Run: スイープ実行の冪等キー (tenant_id, swept_on) 1行。
// 壁時計からの推測ではなく、この行で「実行済みかどうか」を判断する。
type Run struct {
	RunID     uint64
	ULID      string
	TenantID  uint64
	SweptOn   string // YYYY-MM-DD
	Status    string
	Attempts  int
	Created   int
	Skipped   int
	Failed    int
	LastError string
	UpdatedAt time.Time
}

// Result: 1回の実行サマリ
type Result struct {
	SweptOn  string   `json:"swept_on"`
	Working  bool     `json:"working"`
	Created  int      `json:"created"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Failures []string `json:"failures,omitempty"`
}
