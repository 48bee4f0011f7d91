package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/munaburhan/school-system/internal/model"
)

type AttendanceFilter struct {
	StudentID string
	Date      *time.Time
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

type AttendanceStatsFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Grade     string
}

// MarkAttendance upserts by (student_id, date): marking the same student on
// the same day again overwrites the earlier record.
func (s *Store) MarkAttendance(ctx context.Context, id, studentID string, date time.Time, status, markedBy string, notes *string) (model.Attendance, error) {
	var att model.Attendance
	row := s.pool.QueryRow(ctx, `
		INSERT INTO attendance (id, student_id, date, status, marked_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (student_id, date)
		DO UPDATE SET status = $4, marked_by = $5, notes = $6, created_at = CURRENT_TIMESTAMP
		RETURNING id, student_id, date, status, marked_by, notes, created_at
	`, id, studentID, date, status, markedBy, notes)
	err := row.Scan(&att.ID, &att.StudentID, &att.Date, &att.Status, &att.MarkedBy, &att.Notes, &att.CreatedAt)
	return att, err
}

func (s *Store) ListAttendance(ctx context.Context, filter AttendanceFilter) ([]model.AttendanceRecord, error) {
	query := `
		SELECT a.id, a.student_id, a.date, a.status, a.marked_by, a.notes, a.created_at,
		       s.english_name, s.arabic_name, s.student_id AS student_number, s.current_grade,
		       u.username AS marked_by_username
		FROM attendance a
		JOIN students s ON a.student_id = s.id
		LEFT JOIN users u ON a.marked_by = u.id
		WHERE 1=1`
	args := []interface{}{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		query += fmt.Sprintf(" AND a.student_id = $%d", len(args))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		query += fmt.Sprintf(" AND a.date = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		query += fmt.Sprintf(" AND a.date >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		query += fmt.Sprintf(" AND a.date <= $%d", len(args))
	}

	query += ` ORDER BY a.date DESC, s.english_name ASC`
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, (filter.Page-1)*filter.Limit)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		err := rows.Scan(
			&rec.ID,
			&rec.StudentID,
			&rec.Date,
			&rec.Status,
			&rec.MarkedBy,
			&rec.Notes,
			&rec.CreatedAt,
			&rec.EnglishName,
			&rec.ArabicName,
			&rec.StudentNumber,
			&rec.CurrentGrade,
			&rec.MarkedByUsername,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) AttendanceStats(ctx context.Context, filter AttendanceStatsFilter) (model.AttendanceStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE a.status = 'present') AS present_count,
			COUNT(*) FILTER (WHERE a.status = 'absent') AS absent_count,
			COUNT(*) FILTER (WHERE a.status = 'late') AS late_count,
			COUNT(*) FILTER (WHERE a.status = 'excused') AS excused_count,
			COUNT(*) AS total_records
		FROM attendance a
		JOIN students s ON a.student_id = s.id
		WHERE 1=1`
	args := []interface{}{}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		query += fmt.Sprintf(" AND a.date >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		query += fmt.Sprintf(" AND a.date <= $%d", len(args))
	}
	if filter.Grade != "" {
		args = append(args, filter.Grade)
		query += fmt.Sprintf(" AND s.current_grade = $%d", len(args))
	}

	var stats model.AttendanceStats
	row := s.pool.QueryRow(ctx, query, args...)
	err := row.Scan(&stats.PresentCount, &stats.AbsentCount, &stats.LateCount, &stats.ExcusedCount, &stats.TotalRecords)
	return stats, err
}
