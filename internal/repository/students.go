package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/munaburhan/school-system/internal/model"
)

const studentColumns = `id, student_id, english_name, arabic_name, current_grade, status, date_of_birth, contact_info, enrollment_date, created_at, updated_at`

type StudentFilter struct {
	Status string
	Grade  string
	Search string
	Page   int
	Limit  int
}

type StudentInput struct {
	StudentID      string
	EnglishName    string
	ArabicName     *string
	CurrentGrade   *string
	Status         string
	DateOfBirth    *time.Time
	ContactInfo    json.RawMessage
	EnrollmentDate *time.Time
}

func scanStudent(row pgx.Row) (model.Student, error) {
	var st model.Student
	err := row.Scan(
		&st.ID,
		&st.StudentID,
		&st.EnglishName,
		&st.ArabicName,
		&st.CurrentGrade,
		&st.Status,
		&st.DateOfBirth,
		&st.ContactInfo,
		&st.EnrollmentDate,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	return st, err
}

func (s *Store) ListStudents(ctx context.Context, filter StudentFilter) ([]model.Student, int, error) {
	where := ""
	args := []interface{}{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Grade != "" {
		args = append(args, filter.Grade)
		where += fmt.Sprintf(" AND current_grade = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (english_name ILIKE $%d OR arabic_name ILIKE $%d OR student_id ILIKE $%d)", n, n, n)
	}

	var total int
	row := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students WHERE 1=1`+where, args...)
	if err := row.Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + studentColumns + ` FROM students WHERE 1=1` + where + ` ORDER BY created_at DESC`
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, (filter.Page-1)*filter.Limit)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, 0, err
		}
		students = append(students, st)
	}
	return students, total, rows.Err()
}

func (s *Store) GetStudent(ctx context.Context, id string) (model.Student, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	return scanStudent(row)
}

func (s *Store) CreateStudent(ctx context.Context, id string, in StudentInput) (model.Student, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO students (id, student_id, english_name, arabic_name, current_grade, status, date_of_birth, contact_info, enrollment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+studentColumns+`
	`, id, in.StudentID, in.EnglishName, in.ArabicName, in.CurrentGrade, in.Status, in.DateOfBirth, in.ContactInfo, in.EnrollmentDate)
	return scanStudent(row)
}

// UpdateStudent applies a partial update: nil fields keep their stored value.
func (s *Store) UpdateStudent(ctx context.Context, id string, in StudentUpdate) (model.Student, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE students
		SET student_id = COALESCE($1, student_id),
		    english_name = COALESCE($2, english_name),
		    arabic_name = COALESCE($3, arabic_name),
		    current_grade = COALESCE($4, current_grade),
		    status = COALESCE($5, status),
		    date_of_birth = COALESCE($6, date_of_birth),
		    contact_info = COALESCE($7, contact_info),
		    enrollment_date = COALESCE($8, enrollment_date),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $9
		RETURNING `+studentColumns+`
	`, in.StudentID, in.EnglishName, in.ArabicName, in.CurrentGrade, in.Status, in.DateOfBirth, in.ContactInfo, in.EnrollmentDate, id)
	return scanStudent(row)
}

type StudentUpdate struct {
	StudentID      *string
	EnglishName    *string
	ArabicName     *string
	CurrentGrade   *string
	Status         *string
	DateOfBirth    *time.Time
	ContactInfo    json.RawMessage
	EnrollmentDate *time.Time
}

func (s *Store) DeleteStudent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpsertStudent inserts by the student_id business key and overwrites the
// mutable fields on conflict, so re-importing the same sheet is idempotent.
func (s *Store) UpsertStudent(ctx context.Context, id string, in StudentInput) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO students (id, student_id, english_name, arabic_name, current_grade, date_of_birth, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id) DO UPDATE
		SET english_name = $3, arabic_name = $4, current_grade = $5, date_of_birth = $6, status = $7, updated_at = CURRENT_TIMESTAMP
	`, id, in.StudentID, in.EnglishName, in.ArabicName, in.CurrentGrade, in.DateOfBirth, in.Status)
	return err
}

func (s *Store) CountStudentsByNumber(ctx context.Context, studentID string) (int, error) {
	var count int
	row := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students WHERE student_id = $1`, studentID)
	err := row.Scan(&count)
	return count, err
}
