package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		username VARCHAR(100) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(50) NOT NULL CHECK (role IN ('admin', 'principal', 'vice_principal', 'leader', 'teacher', 'student', 'parent')),
		email VARCHAR(255),
		is_active BOOLEAN DEFAULT true,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		student_id VARCHAR(50) UNIQUE NOT NULL,
		english_name VARCHAR(255) NOT NULL,
		arabic_name VARCHAR(255),
		current_grade VARCHAR(50),
		status VARCHAR(20) DEFAULT 'active' CHECK (status IN ('active', 'inactive')),
		date_of_birth DATE,
		contact_info JSONB,
		parent_id UUID REFERENCES users(id),
		enrollment_date DATE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS staff (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		english_name VARCHAR(255) NOT NULL,
		arabic_name VARCHAR(255),
		role VARCHAR(50) NOT NULL,
		department VARCHAR(100),
		hire_date DATE,
		contact_info JSONB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		student_id UUID REFERENCES students(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		status VARCHAR(20) NOT NULL CHECK (status IN ('present', 'absent', 'late', 'excused')),
		marked_by UUID REFERENCES users(id),
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(student_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS permissions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		role VARCHAR(50) NOT NULL,
		module VARCHAR(100) NOT NULL,
		can_read BOOLEAN DEFAULT false,
		can_write BOOLEAN DEFAULT false,
		can_delete BOOLEAN DEFAULT false,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(role, module)
	)`,
}

// Migrate creates the schema. Every statement is idempotent, so it is safe to
// run on every startup of cmd/migrate.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
