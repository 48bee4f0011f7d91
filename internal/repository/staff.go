package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/munaburhan/school-system/internal/model"
)

const staffColumns = `s.id, s.user_id, s.english_name, s.arabic_name, s.role, s.department, s.hire_date, s.contact_info, s.created_at, s.updated_at`

type StaffFilter struct {
	Role   string
	Search string
	Page   int
	Limit  int
}

type StaffInput struct {
	EnglishName string
	ArabicName  *string
	Role        string
	Department  *string
	HireDate    *time.Time
	ContactInfo json.RawMessage
}

type StaffUpdate struct {
	EnglishName *string
	ArabicName  *string
	Role        *string
	Department  *string
	HireDate    *time.Time
	ContactInfo json.RawMessage
}

func scanStaffDetail(row pgx.Row) (model.StaffDetail, error) {
	var st model.StaffDetail
	err := row.Scan(
		&st.ID,
		&st.UserID,
		&st.EnglishName,
		&st.ArabicName,
		&st.Role,
		&st.Department,
		&st.HireDate,
		&st.ContactInfo,
		&st.CreatedAt,
		&st.UpdatedAt,
		&st.Username,
		&st.Email,
		&st.IsActive,
	)
	return st, err
}

func (s *Store) ListStaff(ctx context.Context, filter StaffFilter) ([]model.StaffDetail, int, error) {
	where := ""
	args := []interface{}{}
	if filter.Role != "" {
		args = append(args, filter.Role)
		where += fmt.Sprintf(" AND s.role = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (s.english_name ILIKE $%d OR s.arabic_name ILIKE $%d)", n, n)
	}

	var total int
	row := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM staff s WHERE 1=1`+where, args...)
	if err := row.Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + staffColumns + `, u.username, u.email, u.is_active
		FROM staff s
		LEFT JOIN users u ON s.user_id = u.id
		WHERE 1=1` + where + ` ORDER BY s.created_at DESC`
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, (filter.Page-1)*filter.Limit)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var members []model.StaffDetail
	for rows.Next() {
		st, err := scanStaffDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		members = append(members, st)
	}
	return members, total, rows.Err()
}

func (s *Store) GetStaff(ctx context.Context, id string) (model.StaffDetail, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+staffColumns+`, u.username, u.email, u.is_active
		FROM staff s
		LEFT JOIN users u ON s.user_id = u.id
		WHERE s.id = $1
	`, id)
	return scanStaffDetail(row)
}

// CreateStaffWithUser creates the login account and the staff profile as one
// atomic pair. If the profile insert fails the user insert is rolled back
// with it, so no orphan account is left behind.
func (s *Store) CreateStaffWithUser(ctx context.Context, userID, staffID, username, passwordHash string, email *string, in StaffInput) (model.Staff, error) {
	var created model.Staff
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO users (id, username, password_hash, role, email)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, userID, username, passwordHash, in.Role, email)
		var insertedUserID string
		if err := row.Scan(&insertedUserID); err != nil {
			return err
		}

		row = tx.QueryRow(ctx, `
			INSERT INTO staff (id, user_id, english_name, arabic_name, role, department, hire_date, contact_info)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, user_id, english_name, arabic_name, role, department, hire_date, contact_info, created_at, updated_at
		`, staffID, insertedUserID, in.EnglishName, in.ArabicName, in.Role, in.Department, in.HireDate, in.ContactInfo)
		return row.Scan(
			&created.ID,
			&created.UserID,
			&created.EnglishName,
			&created.ArabicName,
			&created.Role,
			&created.Department,
			&created.HireDate,
			&created.ContactInfo,
			&created.CreatedAt,
			&created.UpdatedAt,
		)
	})
	return created, err
}

// UpsertStaffWithUser is the per-row unit of the staff import: upsert the
// user by username, then upsert the linked profile, both inside one
// transaction.
func (s *Store) UpsertStaffWithUser(ctx context.Context, userID, staffID, username, passwordHash string, email *string, role string, in StaffInput) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO users (id, username, password_hash, role, email)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (username) DO UPDATE
			SET role = $4, email = $5, updated_at = CURRENT_TIMESTAMP
			RETURNING id
		`, userID, username, passwordHash, role, email)
		var resolvedUserID string
		if err := row.Scan(&resolvedUserID); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO staff (id, user_id, english_name, arabic_name, role, department)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id) DO UPDATE
			SET english_name = $3, arabic_name = $4, role = $5, department = $6, updated_at = CURRENT_TIMESTAMP
		`, staffID, resolvedUserID, in.EnglishName, in.ArabicName, in.Role, in.Department)
		return err
	})
}

func (s *Store) UpdateStaff(ctx context.Context, id string, in StaffUpdate) (model.Staff, error) {
	var updated model.Staff
	row := s.pool.QueryRow(ctx, `
		UPDATE staff
		SET english_name = COALESCE($1, english_name),
		    arabic_name = COALESCE($2, arabic_name),
		    role = COALESCE($3, role),
		    department = COALESCE($4, department),
		    hire_date = COALESCE($5, hire_date),
		    contact_info = COALESCE($6, contact_info),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $7
		RETURNING id, user_id, english_name, arabic_name, role, department, hire_date, contact_info, created_at, updated_at
	`, in.EnglishName, in.ArabicName, in.Role, in.Department, in.HireDate, in.ContactInfo, id)
	err := row.Scan(
		&updated.ID,
		&updated.UserID,
		&updated.EnglishName,
		&updated.ArabicName,
		&updated.Role,
		&updated.Department,
		&updated.HireDate,
		&updated.ContactInfo,
		&updated.CreatedAt,
		&updated.UpdatedAt,
	)
	return updated, err
}

func (s *Store) DeleteStaff(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM staff WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) CountUsersByUsername(ctx context.Context, username string) (int, error) {
	var count int
	row := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE username = $1`, username)
	err := row.Scan(&count)
	return count, err
}
