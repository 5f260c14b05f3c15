package calendar

import (
	"context"
	"database/sql"
	"time"
)

type DBTX interface {
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

// ===== academic years / bimesters =====

func (s *Store) GetAcademicYear(ctx context.Context, tenantID uint64, year int) (*AcademicYear, error) {
	const q = `
	SELECT academic_year_id, tenant_id, year, DATE_FORMAT(start_date, '%Y-%m-%d'), DATE_FORMAT(end_date, '%Y-%m-%d'), finalized
	FROM academic_years
	WHERE tenant_id = ? AND year = ?`
	var y AcademicYear
	err := s.db.QueryRowContext(ctx, q, tenantID, year).Scan(
		&y.AcademicYearID, &y.TenantID, &y.Year, &y.StartDate, &y.EndDate, &y.Finalized,
	)
	if err != nil {
		return nil, err
	}
	return &y, nil
}

func (s *Store) InsertAcademicYear(ctx context.Context, db DBTX, tenantID uint64, in CreateAcademicYearRequest) (uint64, error) {
	const q = `
	INSERT INTO academic_years (tenant_id, year, start_date, end_date, finalized)
	VALUES (?, ?, ?, ?, 0)`
	res, err := db.ExecContext(ctx, q, tenantID, in.Year, in.StartDate, in.EndDate)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (s *Store) InsertBimester(ctx context.Context, db DBTX, yearID uint64, in BimesterInput) (uint64, error) {
	const q = `
	INSERT INTO bimesters (academic_year_id, seq, name, start_date, end_date)
	VALUES (?, ?, ?, ?, ?)`
	res, err := db.ExecContext(ctx, q, yearID, in.Seq, in.Name, in.StartDate, in.EndDate)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (s *Store) FinalizeAcademicYear(ctx context.Context, tenantID uint64, year int) (int64, error) {
	const q = `UPDATE academic_years SET finalized = 1 WHERE tenant_id = ? AND year = ? AND finalized = 0`
	res, err := s.db.ExecContext(ctx, q, tenantID, year)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) ListBimesters(ctx context.Context, yearID uint64) ([]Bimester, error) {
	const q = `
	SELECT bimester_id, academic_year_id, seq, name, DATE_FORMAT(start_date, '%Y-%m-%d'), DATE_FORMAT(end_date, '%Y-%m-%d')
	FROM bimesters
	WHERE academic_year_id = ?
	ORDER BY seq ASC`
	rows, err := s.db.QueryContext(ctx, q, yearID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bimester
	for rows.Next() {
		var b Bimester
		if err := rows.Scan(&b.BimesterID, &b.AcademicYearID, &b.Seq, &b.Name, &b.StartDate, &b.EndDate); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BimesterFor: date を含むビメストレを返す（なければ nil, nil）
func (s *Store) BimesterFor(ctx context.Context, tenantID uint64, date time.Time) (*Bimester, error) {
	const q = `
	SELECT b.bimester_id, b.academic_year_id, b.seq, b.name, DATE_FORMAT(b.start_date, '%Y-%m-%d'), DATE_FORMAT(b.end_date, '%Y-%m-%d')
	FROM bimesters b
	JOIN academic_years y ON y.academic_year_id = b.academic_year_id
	WHERE y.tenant_id = ? AND b.start_date <= ? AND b.end_date >= ?
	ORDER BY b.seq ASC
	LIMIT 1`
	d := date.Format(DateLayout)
	var b Bimester
	err := s.db.QueryRowContext(ctx, q, tenantID, d, d).Scan(
		&b.BimesterID, &b.AcademicYearID, &b.Seq, &b.Name, &b.StartDate, &b.EndDate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ===== calendar events =====

// EventsFor: date を覆うイベント（テナント固有 + 全体共通）。
// recurring のものは年を無視して月日で照合する。
func (s *Store) EventsFor(ctx context.Context, tenantID uint64, date time.Time) ([]CalendarEvent, error) {
	const q = `
	SELECT event_id, tenant_id, name, start_date, end_date, working, recurring
	FROM calendar_events
	WHERE (tenant_id IS NULL OR tenant_id = ?)
	AND (
		(recurring = 0 AND start_date <= ? AND end_date >= ?)
		OR
		(recurring = 1 AND DATE_FORMAT(start_date, '%m-%d') <= ? AND DATE_FORMAT(end_date, '%m-%d') >= ?)
	)`
	d := date.Format(DateLayout)
	md := date.Format("01-02")
	rows, err := s.db.QueryContext(ctx, q, tenantID, d, d, md, md)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CalendarEvent
	for rows.Next() {
		var r eventRow
		if err := rows.Scan(&r.EventID, &r.TenantID, &r.Name, &r.StartDate, &r.EndDate, &r.Working, &r.Recurring); err != nil {
			return nil, err
		}
		out = append(out, r.toModel())
	}
	return out, rows.Err()
}

// ===== tenant settings（曜日設定） =====

// GetSetting: tenant_settings の1キー取得。未設定は "" を返す
func (s *Store) GetSetting(ctx context.Context, tenantID uint64, key string) (string, error) {
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
