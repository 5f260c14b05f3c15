package roster

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type DBTX interface {
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

const dateLayout = "2006-01-02"

// 生徒のみ教室経由で level/shift を引く。
// 教員・職員は所属レベルを直接持つ（担任レベルの始業時刻に合わせる運用）。

// GetAssignment: スケジュール解決・帳票用の所属情報を1件取得
func (s *Store) GetAssignment(ctx context.Context, tenantID uint64, ref AttendableRef) (*Assignment, error) {
	switch ref.Type {
	case TypeStudent:
		const q = `
		SELECT s.full_name, IFNULL(c.level, ''), IFNULL(c.grade, ''), IFNULL(c.section, ''), IFNULL(c.shift, ''), s.is_active
		FROM students s
		LEFT JOIN classrooms c ON c.classroom_id = s.classroom_id
		WHERE s.tenant_id = ? AND s.student_id = ?`
		return s.scanAssignment(ctx, q, tenantID, ref)
	case TypeTeacher:
		const q = `
		SELECT t.full_name, IFNULL(t.level, ''), '', '', IFNULL(t.shift, ''), t.is_active
		FROM teachers t
		WHERE t.tenant_id = ? AND t.teacher_id = ?`
		return s.scanAssignment(ctx, q, tenantID, ref)
	case TypeStaff:
		const q = `
		SELECT m.full_name, IFNULL(m.level, ''), '', '', IFNULL(m.shift, ''), m.is_active
		FROM staff_members m
		WHERE m.tenant_id = ? AND m.staff_id = ?`
		return s.scanAssignment(ctx, q, tenantID, ref)
	}
	return nil, fmt.Errorf("unknown attendable type: %s", ref.Type)
}

func (s *Store) scanAssignment(ctx context.Context, q string, tenantID uint64, ref AttendableRef) (*Assignment, error) {
	a := Assignment{Ref: ref}
	err := s.db.QueryRowContext(ctx, q, tenantID, ref.ID).Scan(
		&a.FullName, &a.Level, &a.Grade, &a.Section, &a.Shift, &a.Active,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListActive: テナントの在籍中の対象者を種別横断で列挙する（欠席スイープ用）。
// date 時点で在籍している者のみ（入学日・離籍日で判定）。
func (s *Store) ListActive(ctx context.Context, tenantID uint64, date time.Time, f Filter) ([]Assignment, error) {
	var out []Assignment

	for _, t := range []AttendableType{TypeStudent, TypeTeacher, TypeStaff} {
		if f.Type != nil && *f.Type != t {
			continue
		}
		rows, err := s.listActiveByType(ctx, tenantID, t, date, f)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (s *Store) listActiveByType(ctx context.Context, tenantID uint64, t AttendableType, date time.Time, f Filter) ([]Assignment, error) {
	var sb strings.Builder
	args := []any{}
	d := date.Format(dateLayout)

	switch t {
	case TypeStudent:
		sb.WriteString(`
		SELECT s.student_id, s.full_name, IFNULL(c.level, ''), IFNULL(c.grade, ''), IFNULL(c.section, ''), IFNULL(c.shift, '')
		FROM students s
		LEFT JOIN classrooms c ON c.classroom_id = s.classroom_id
		WHERE s.tenant_id = ? AND s.is_active = 1
		AND s.enrolled_on <= ?
		AND (s.withdrawn_on IS NULL OR s.withdrawn_on > ?)`)
		args = append(args, tenantID, d, d)
		if f.Level != nil && *f.Level != "" {
			sb.WriteString(" AND c.level = ?")
			args = append(args, *f.Level)
		}
		if f.Grade != nil && *f.Grade != "" {
			sb.WriteString(" AND c.grade = ?")
			args = append(args, *f.Grade)
		}
		if f.Section != nil && *f.Section != "" {
			sb.WriteString(" AND c.section = ?")
			args = append(args, *f.Section)
		}
		if f.Shift != nil && *f.Shift != "" {
			sb.WriteString(" AND c.shift = ?")
			args = append(args, *f.Shift)
		}
		sb.WriteString(" ORDER BY s.student_id ASC")
	case TypeTeacher:
		sb.WriteString(`
		SELECT t.teacher_id, t.full_name, IFNULL(t.level, ''), '', '', IFNULL(t.shift, '')
		FROM teachers t
		WHERE t.tenant_id = ? AND t.is_active = 1
		AND t.hired_on <= ?
		AND (t.left_on IS NULL OR t.left_on > ?)`)
		args = append(args, tenantID, d, d)
		if f.Level != nil && *f.Level != "" {
			sb.WriteString(" AND t.level = ?")
			args = append(args, *f.Level)
		}
		if f.Shift != nil && *f.Shift != "" {
			sb.WriteString(" AND t.shift = ?")
			args = append(args, *f.Shift)
		}
		sb.WriteString(" ORDER BY t.teacher_id ASC")
	case TypeStaff:
		sb.WriteString(`
		SELECT m.staff_id, m.full_name, IFNULL(m.level, ''), '', '', IFNULL(m.shift, '')
		FROM staff_members m
		WHERE m.tenant_id = ? AND m.is_active = 1
		AND m.hired_on <= ?
		AND (m.left_on IS NULL OR m.left_on > ?)`)
		args = append(args, tenantID, d, d)
		if f.Shift != nil && *f.Shift != "" {
			sb.WriteString(" AND m.shift = ?")
			args = append(args, *f.Shift)
		}
		sb.WriteString(" ORDER BY m.staff_id ASC")
	default:
		return nil, fmt.Errorf("unknown attendable type: %s", t)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		a := Assignment{Ref: AttendableRef{Type: t}, Active: true}
		if err := rows.Scan(&a.Ref.ID, &a.FullName, &a.Level, &a.Grade, &a.Section, &a.Shift); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// IsEnrolledOn: date 時点の在籍判定（帳票の分母判定用）
func (s *Store) IsEnrolledOn(ctx context.Context, tenantID uint64, ref AttendableRef, date time.Time) (bool, error) {
	d := date.Format(dateLayout)
	var q string
	switch ref.Type {
	case TypeStudent:
		q = `SELECT 1 FROM students WHERE tenant_id = ? AND student_id = ?
		AND enrolled_on <= ? AND (withdrawn_on IS NULL OR withdrawn_on > ?) LIMIT 1`
	case TypeTeacher:
		q = `SELECT 1 FROM teachers WHERE tenant_id = ? AND teacher_id = ?
		AND hired_on <= ? AND (left_on IS NULL OR left_on > ?) LIMIT 1`
	case TypeStaff:
		q = `SELECT 1 FROM staff_members WHERE tenant_id = ? AND staff_id = ?
		AND hired_on <= ? AND (left_on IS NULL OR left_on > ?) LIMIT 1`
	default:
		return false, fmt.Errorf("unknown attendable type: %s", ref.Type)
	}
	var one int
	err := s.db.QueryRowContext(ctx, q, tenantID, ref.ID, d, d).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
