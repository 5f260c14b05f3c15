package auth

import (
	"context"
	"database/sql"
	"errors"
)

type Account struct {
	TenantID     uint64
	Username     string
	PasswordHash string
	Role         string
	IsDisabled   bool
	CreatedAt    string
}

type AccountStore interface {
	Get(ctx context.Context, tenantID uint64, username string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	Delete(ctx context.Context, tenantID uint64, username string) (int64, error)
	UpdatePassword(ctx context.Context, tenantID uint64, username, hash string) (int64, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) AccountStore {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, tenantID uint64, username string) (*Account, error) {
	const q = `
SELECT tenant_id, username, password_hash, role, is_disabled, created_at
FROM auth_accounts
WHERE tenant_id = ? AND username = ?
LIMIT 1
`
	var a Account
	var isDisabledInt int
	err := s.db.QueryRowContext(ctx, q, tenantID, username).Scan(
		&a.TenantID,
		&a.Username,
		&a.PasswordHash,
		&a.Role,
		&isDisabledInt,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if isDisabledInt != 0 {
		a.IsDisabled = true
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *Account) error {
	const q = `
INSERT INTO auth_accounts (tenant_id, username, password_hash, role, is_disabled, created_at)
VALUES (?, ?, ?, ?, 0, NOW(6))
`
	_, err := s.db.ExecContext(ctx, q, a.TenantID, a.Username, a.PasswordHash, a.Role)
	return err
}

func (s *Store) Delete(ctx context.Context, tenantID uint64, username string) (int64, error) {
	const q = `DELETE FROM auth_accounts WHERE tenant_id = ? AND username = ?`
	res, err := s.db.ExecContext(ctx, q, tenantID, username)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) UpdatePassword(ctx context.Context, tenantID uint64, username, hash string) (int64, error) {
	const q = `UPDATE auth_accounts SET password_hash = ? WHERE tenant_id = ? AND username = ?`
	res, err := s.db.ExecContext(ctx, q, hash, tenantID, username)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
