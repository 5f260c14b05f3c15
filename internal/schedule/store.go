package schedule

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

// Get: 設定1キー取得。未設定は "" （設定の有無は値の空文字で判定する）
func (s *Store) Get(ctx context.Context, tenantID uint64, key string) (string, error) {
	const q = `SELECT value FROM tenant_settings WHERE tenant_id = ? AND setting_key = ?`
	var v string
	err := s.db.QueryRowContext(ctx, q, tenantID, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Put: upsert。過去レコードには影響しない（判定時に参照されるだけ）
func (s *Store) Put(ctx context.Context, tenantID uint64, key, value string) error {
	const q = `
	INSERT INTO tenant_settings (tenant_id, setting_key, value)
	VALUES (?, ?, ?)
	ON DUPLICATE KEY UPDATE value = VALUES(value)`
	_, err := s.db.ExecContext(ctx, q, tenantID, key, value)
	return err
}

// ListByPrefix: 設定一覧（設定画面用）
func (s *Store) ListByPrefix(ctx context.Context, tenantID uint64, prefix string) (map[string]string, error) {
	const q = `
	SELECT setting_key, value FROM tenant_settings
	WHERE tenant_id = ? AND setting_key LIKE CONCAT(?, '%')
	ORDER BY setting_key ASC`
	rows, err := s.db.QueryContext(ctx, q, tenantID, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
