package attendance

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysql "github.com/go-sql-driver/mysql"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
)

type DBTX interface {
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

// Store: 出欠台帳。キーの UNIQUE 制約と「半分ごとの条件付きUPDATE」で
// 冪等性を担保する。直列化そのもの（ロック）はサービス層の責務。
type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

const selectRecord = `
	SELECT record_id, ulid, tenant_id, attendable_type, attendable_id,
	       DATE_FORMAT(date, '%Y-%m-%d'), entry_time, entry_status,
	       exit_time, exit_status, anomaly, recorded_by, device_type, notified, created_at
	FROM attendance_records`

// CreateIfMissing: キーの行が無ければ作る。既にあれば created=false（エラーにしない）。
// UNIQUE (tenant_id, attendable_type, attendable_id, date) 前提。
func (s *Store) CreateIfMissing(ctx context.Context, ulid string, tenantID uint64, ref roster.AttendableRef, date string) (bool, error) {
	const q = `
	INSERT INTO attendance_records
	(ulid, tenant_id, attendable_type, attendable_id, date, exit_status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, NOW(6))`
	_, err := s.db.ExecContext(ctx, q, ulid, tenantID, string(ref.Type), ref.ID, date, ExitNotExited)
	if err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetByKey: キーで1件取得
func (s *Store) GetByKey(ctx context.Context, tenantID uint64, ref roster.AttendableRef, date string) (*Record, error) {
	q := selectRecord + `
	WHERE tenant_id = ? AND attendable_type = ? AND attendable_id = ? AND date = ?`
	row := s.db.QueryRowContext(ctx, q, tenantID, string(ref.Type), ref.ID, date)
	return scanRecord(row)
}

func (s *Store) GetByULID(ctx context.Context, tenantID uint64, ulid string) (*Record, error) {
	q := selectRecord + ` WHERE tenant_id = ? AND ulid = ?`
	row := s.db.QueryRowContext(ctx, q, tenantID, ulid)
	return scanRecord(row)
}

// SetEntry: entry 側を1回だけ書く。書けなかったら（既に書かれていたら）false。
// スイープ済み（entry_status = ABSENT 等）の行にも書かない。
func (s *Store) SetEntry(ctx context.Context, tenantID uint64, ref roster.AttendableRef, date string, t time.Time, status, recordedBy, deviceType string) (bool, error) {
	const q = `
	UPDATE attendance_records
	SET entry_time = ?, entry_status = ?, recorded_by = ?, device_type = ?, notified = 0
	WHERE tenant_id = ? AND attendable_type = ? AND attendable_id = ? AND date = ?
	AND entry_time IS NULL AND entry_status IS NULL`
	res, err := s.db.ExecContext(ctx, q, t.UTC(), status, recordedBy, deviceType,
		tenantID, string(ref.Type), ref.ID, date)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}

// SetExit: exit 側を1回だけ書く。anomaly は入場記録なしの退場時に立てる
func (s *Store) SetExit(ctx context.Context, tenantID uint64, ref roster.AttendableRef, date string, t time.Time, status string, anomaly bool, recordedBy, deviceType string) (bool, error) {
	const q = `
	UPDATE attendance_records
	SET exit_time = ?, exit_status = ?, anomaly = anomaly OR ?, recorded_by = ?, device_type = ?, notified = 0
	WHERE tenant_id = ? AND attendable_type = ? AND attendable_id = ? AND date = ?
	AND exit_time IS NULL`
	res, err := s.db.ExecContext(ctx, q, t.UTC(), status, anomaly, recordedBy, deviceType,
		tenantID, string(ref.Type), ref.ID, date)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}

// InsertAbsent: スイープ用。キーの行が既にあれば何もしない（created=false）。
// entry_time を持たない ABSENT / ABSENT_JUSTIFIED 行を作る。
func (s *Store) InsertAbsent(ctx context.Context, ulid string, tenantID uint64, ref roster.AttendableRef, date, entryStatus string) (bool, error) {
	const q = `
	INSERT INTO attendance_records
	(ulid, tenant_id, attendable_type, attendable_id, date, entry_status, exit_status, recorded_by, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, 'sweep', NOW(6))`
	_, err := s.db.ExecContext(ctx, q, ulid, tenantID, string(ref.Type), ref.ID, date, entryStatus, ExitNotExited)
	if err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkNotified: 通知送信済みフラグ（ディスパッチャの成功コールバック）
func (s *Store) MarkNotified(ctx context.Context, recordULID string) error {
	const q = `UPDATE attendance_records SET notified = 1 WHERE ulid = ?`
	_, err := s.db.ExecContext(ctx, q, recordULID)
	return err
}

// List: 条件に応じて動的WHERE + LIMIT/OFFSET
func (s *Store) List(ctx context.Context, tenantID uint64, q ListQuery) ([]Record, int64, error) {
	var (
		buf    bytes.Buffer
		args   []any
		wheres []string
	)
	buf.WriteString(selectRecord)

	wheres = append(wheres, "tenant_id = ?")
	args = append(args, tenantID)
	if q.AttendableType != nil && *q.AttendableType != "" {
		wheres = append(wheres, "attendable_type = ?")
		args = append(args, *q.AttendableType)
	}
	if q.AttendableID != nil && *q.AttendableID != 0 {
		wheres = append(wheres, "attendable_id = ?")
		args = append(args, *q.AttendableID)
	}
	if q.On != nil && *q.On != "" {
		wheres = append(wheres, "date = ?")
		args = append(args, *q.On)
	} else {
		if q.From != nil && *q.From != "" {
			wheres = append(wheres, "date >= ?")
			args = append(args, *q.From)
		}
		if q.To != nil && *q.To != "" {
			wheres = append(wheres, "date <= ?")
			args = append(args, *q.To)
		}
	}
	if q.EntryStatus != nil && *q.EntryStatus != "" {
		wheres = append(wheres, "entry_status = ?")
		args = append(args, *q.EntryStatus)
	}
	buf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	buf.WriteString(" ORDER BY date DESC, attendable_type ASC, attendable_id ASC")

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	buf.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, q.Offset))

	rows, err := s.db.QueryContext(ctx, buf.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecordRows(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// COUNT（ORDER BY より前までを再構築）
	var cntBuf bytes.Buffer
	cntBuf.WriteString("SELECT COUNT(*) FROM attendance_records WHERE " + strings.Join(wheres, " AND "))
	var total int64
	if err := s.db.QueryRowContext(ctx, cntBuf.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ===== helpers =====

func scanRecord(row *sql.Row) (*Record, error) {
	var r recordRow
	if err := row.Scan(
		&r.RecordID, &r.ULID, &r.TenantID, &r.Type, &r.AttendID, &r.Date,
		&r.EntryTime, &r.EntryStatus, &r.ExitTime, &r.ExitStatus,
		&r.Anomaly, &r.RecordedBy, &r.DeviceType, &r.Notified, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec := r.toModel()
	return &rec, nil
}

func scanRecordRows(rows *sql.Rows) (*Record, error) {
	var r recordRow
	if err := rows.Scan(
		&r.RecordID, &r.ULID, &r.TenantID, &r.Type, &r.AttendID, &r.Date,
		&r.EntryTime, &r.EntryStatus, &r.ExitTime, &r.ExitStatus,
		&r.Anomaly, &r.RecordedBy, &r.DeviceType, &r.Notified, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec := r.toModel()
	return &rec, nil
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}
