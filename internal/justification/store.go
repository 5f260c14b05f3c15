package justification

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
)

type DBTX interface {
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

func (s *Store) Insert(ctx context.Context, j *Justification) error {
	const q = `
	INSERT INTO justifications
	(ulid, tenant_id, attendable_type, attendable_id, date_from, date_to, type, reason, created_by, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(6))`
	res, err := s.db.ExecContext(ctx, q,
		j.ULID, j.TenantID, string(j.Attendable.Type), j.Attendable.ID,
		j.DateFrom, j.DateTo, j.Type, j.Reason, j.CreatedBy,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	j.JustificationID = uint64(id)
	return nil
}

// ActiveFor: date を覆う有効な（未取消の）事由のうち最新の1件。無ければ nil, nil
func (s *Store) ActiveFor(ctx context.Context, tenantID uint64, ref roster.AttendableRef, date time.Time, jtype string) (*Justification, error) {
	const q = `
	SELECT justification_id, ulid, tenant_id, attendable_type, attendable_id,
	       DATE_FORMAT(date_from, '%Y-%m-%d'), DATE_FORMAT(date_to, '%Y-%m-%d'),
	       type, reason, created_by, created_at, revoked_at
	FROM justifications
	WHERE tenant_id = ? AND attendable_type = ? AND attendable_id = ?
	AND type = ? AND revoked_at IS NULL
	AND date_from <= ? AND date_to >= ?
	ORDER BY created_at DESC, justification_id DESC
	LIMIT 1`
	d := date.Format(DateLayout)
	row := s.db.QueryRowContext(ctx, q, tenantID, string(ref.Type), ref.ID, jtype, d, d)

	var j Justification
	var atype string
	err := row.Scan(
		&j.JustificationID, &j.ULID, &j.TenantID, &atype, &j.Attendable.ID,
		&j.DateFrom, &j.DateTo, &j.Type, &j.Reason, &j.CreatedBy, &j.CreatedAt, &j.RevokedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	j.Attendable.Type = roster.AttendableType(atype)
	return &j, nil
}

// List: 一覧（絞り込みは対象者と期間のみ）
func (s *Store) List(ctx context.Context, tenantID uint64, f ListFilter) ([]Justification, error) {
	var (
		sb     strings.Builder
		args   []any
		wheres []string
	)
	sb.WriteString(`
	SELECT justification_id, ulid, tenant_id, attendable_type, attendable_id,
	       DATE_FORMAT(date_from, '%Y-%m-%d'), DATE_FORMAT(date_to, '%Y-%m-%d'),
	       type, reason, created_by, created_at, revoked_at
	FROM justifications
	`)
	wheres = append(wheres, "tenant_id = ?")
	args = append(args, tenantID)
	if f.Type != nil && *f.Type != "" {
		wheres = append(wheres, "type = ?")
		args = append(args, *f.Type)
	}
	if f.AttendableType != nil && *f.AttendableType != "" {
		wheres = append(wheres, "attendable_type = ?")
		args = append(args, *f.AttendableType)
	}
	if f.AttendableID != nil && *f.AttendableID != 0 {
		wheres = append(wheres, "attendable_id = ?")
		args = append(args, *f.AttendableID)
	}
	if f.From != nil && *f.From != "" {
		wheres = append(wheres, "date_to >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil && *f.To != "" {
		wheres = append(wheres, "date_from <= ?")
		args = append(args, *f.To)
	}
	if !f.IncludeRevoked {
		wheres = append(wheres, "revoked_at IS NULL")
	}
	sb.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	sb.WriteString(" ORDER BY created_at DESC, justification_id DESC")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Justification
	for rows.Next() {
		var j Justification
		var atype string
		if err := rows.Scan(
			&j.JustificationID, &j.ULID, &j.TenantID, &atype, &j.Attendable.ID,
			&j.DateFrom, &j.DateTo, &j.Type, &j.Reason, &j.CreatedBy, &j.CreatedAt, &j.RevokedAt,
		); err != nil {
			return nil, err
		}
		j.Attendable.Type = roster.AttendableType(atype)
		out = append(out, j)
	}
	return out, rows.Err()
}

// Revoke: 論理削除。既に取消済みなら 0 行
func (s *Store) Revoke(ctx context.Context, tenantID uint64, ulid string) (int64, error) {
	const q = `
	UPDATE justifications SET revoked_at = NOW(6)
	WHERE tenant_id = ? AND ulid = ? AND revoked_at IS NULL`
	res, err := s.db.ExecContext(ctx, q, tenantID, ulid)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
