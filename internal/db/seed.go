package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/munaburhan/school-system/internal/crypto"
)

var seedRoles = []string{"admin", "principal", "vice_principal", "leader", "teacher", "student"}

var seedModules = []string{"students", "staff", "attendance", "timetable", "behavior", "exams", "analytics", "permissions"}

// defaultGrants returns the seeded flags for one (role, module) cell. Admin
// gets everything; the admin rows are the only place full access is granted,
// the resolver itself never infers anything from the role name.
func defaultGrants(role, module string) (canRead, canWrite, canDelete bool) {
	switch role {
	case "admin":
		return true, true, true
	case "principal", "vice_principal":
		return true, false, false
	case "leader":
		canWrite = module == "attendance" || module == "behavior"
		return true, canWrite, false
	case "teacher":
		switch module {
		case "students", "behavior":
			return true, false, false
		case "attendance", "exams":
			return true, true, false
		}
		return false, false, false
	case "student":
		switch module {
		case "attendance", "exams", "timetable":
			return true, false, false
		}
		return false, false, false
	}
	return false, false, false
}

// Seed provisions the default admin login and the full permission matrix.
// Safe to re-run: the admin insert is a no-op when the username exists and
// the matrix rows are upserted in place.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	passwordHash, err := crypto.HashPassword("admin123")
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, role, email, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username) DO NOTHING
	`, uuid.NewString(), "admin", passwordHash, "admin", "admin@school.com", true)
	if err != nil {
		return err
	}

	for _, role := range seedRoles {
		for _, module := range seedModules {
			canRead, canWrite, canDelete := defaultGrants(role, module)
			_, err := tx.Exec(ctx, `
				INSERT INTO permissions (id, role, module, can_read, can_write, can_delete)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (role, module) DO UPDATE
				SET can_read = $4, can_write = $5, can_delete = $6, updated_at = CURRENT_TIMESTAMP
			`, uuid.NewString(), role, module, canRead, canWrite, canDelete)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}
