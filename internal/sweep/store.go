package sweep

import (
	"context"
	"database/sql"
	"errors"
	"time"

	mysql "github.com/go-sql-driver/mysql"
)

// staleClaimAfter: RUNNING のまま updated_at がこれ以上古い claim は死んだとみなして奪える。
// プロセスクラッシュや Finish 失敗で RUNNING が残っても、そのテナント日が永久に詰まらないように。
const staleClaimAfter = 15 * time.Minute

type DBTX interface {
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

// Claim: (tenant, date) の実行権を取る。
// 行が無ければ作る。あれば RUNNING でない場合に限り RUNNING に戻す（再実行・バックフィル用）。
// RUNNING でも updated_at が staleClaimAfter より古ければ奪う（クラッシュした実行の残骸）。
// 生きた実行が他にいる場合だけ claimed=false。
func (s *Store) Claim(ctx context.Context, ulid string, tenantID uint64, date string) (bool, error) {
	const ins = `
	INSERT INTO sweep_runs (ulid, tenant_id, swept_on, status, attempts, updated_at)
	VALUES (?, ?, ?, ?, 1, NOW(6))`
	_, err := s.db.ExecContext(ctx, ins, ulid, tenantID, date, RunStatusRunning)
	if err == nil {
		return true, nil
	}
	if !isDuplicateKey(err) {
		return false, err
	}

	const upd = `
	UPDATE sweep_runs
	SET ulid = ?, status = ?, attempts = attempts + 1, last_error = NULL, updated_at = NOW(6)
	WHERE tenant_id = ? AND swept_on = ?
	AND (status <> ? OR updated_at < NOW(6) - INTERVAL ? SECOND)`
	res, err := s.db.ExecContext(ctx, upd, ulid, RunStatusRunning, tenantID, date, RunStatusRunning, int(staleClaimAfter.Seconds()))
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}

// Finish: 実行結果を書き戻す
func (s *Store) Finish(ctx context.Context, tenantID uint64, date, status string, created, skipped, failed int, lastError string) error {
	const q = `
	UPDATE sweep_runs
	SET status = ?, created_count = ?, skipped_count = ?, failed_count = ?, last_error = NULLIF(?, ''), updated_at = NOW(6)
	WHERE tenant_id = ? AND swept_on = ?`
	_, err := s.db.ExecContext(ctx, q, status, created, skipped, failed, lastError, tenantID, date)
	return err
}

// GetRun: 状態参照（スケジューラの起動判定用）
func (s *Store) GetRun(ctx context.Context, tenantID uint64, date string) (*Run, error) {
	const q = `
	SELECT run_id, ulid, tenant_id, DATE_FORMAT(swept_on, '%Y-%m-%d'), status, attempts,
	       created_count, skipped_count, failed_count, IFNULL(last_error, ''), updated_at
	FROM sweep_runs
	WHERE tenant_id = ? AND swept_on = ?`
	var r Run
	err := s.db.QueryRowContext(ctx, q, tenantID, date).Scan(
		&r.RunID, &r.ULID, &r.TenantID, &r.SweptOn, &r.Status, &r.Attempts,
		&r.Created, &r.Skipped, &r.Failed, &r.LastError, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListTenantIDs: スケジューラの巡回対象
func (s *Store) ListTenantIDs(ctx context.Context) ([]uint64, error) {
	const q = `SELECT tenant_id FROM tenants WHERE is_active = 1 ORDER BY tenant_id ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}
