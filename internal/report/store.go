package report

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

// RowKey: 台帳行の論理キー（テナントは問い合わせ単位なので含めない）
type RowKey struct {
	Type string
	ID   uint64
	Date string
}

// Row: 集計に必要な列だけ
type Row struct {
	EntryStatus *string
	ExitStatus  string
	Anomaly     bool
}

// FetchRange: 期間内の台帳行をまとめて引く。
// 集計はメモリ上でカレンダーと突き合わせるので、ここでは行を返すだけ
func (s *Store) FetchRange(ctx context.Context, tenantID uint64, from, to string) (map[RowKey]Row, error) {
	const q = `
	SELECT attendable_type, attendable_id, DATE_FORMAT(date, '%Y-%m-%d'), entry_status, exit_status, anomaly
	FROM attendance_records
	WHERE tenant_id = ? AND date >= ? AND date <= ?`
	rows, err := s.db.QueryContext(ctx, q, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[RowKey]Row{}
	for rows.Next() {
		var k RowKey
		var r Row
		var entry sql.NullString
		if err := rows.Scan(&k.Type, &k.ID, &k.Date, &entry, &r.ExitStatus, &r.Anomaly); err != nil {
			return nil, err
		}
		if entry.Valid {
			s := entry.String
			r.EntryStatus = &s
		}
		out[k] = r
	}
	return out, rows.Err()
}
