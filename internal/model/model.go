package model

import (
	"encoding/json"
	"time"
)

type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	Email        *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Student struct {
	ID             string
	StudentID      string
	EnglishName    string
	ArabicName     *string
	CurrentGrade   *string
	Status         string
	DateOfBirth    *time.Time
	ContactInfo    json.RawMessage
	EnrollmentDate *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Staff struct {
	ID          string
	UserID      string
	EnglishName string
	ArabicName  *string
	Role        string
	Department  *string
	HireDate    *time.Time
	ContactInfo json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StaffDetail is a staff row joined with its linked user account.
type StaffDetail struct {
	Staff
	Username *string
	Email    *string
	IsActive *bool
}

type Attendance struct {
	ID        string
	StudentID string
	Date      time.Time
	Status    string
	MarkedBy  *string
	Notes     *string
	CreatedAt time.Time
}

// AttendanceRecord is an attendance row joined with the student and the
// username of whoever marked it.
type AttendanceRecord struct {
	Attendance
	EnglishName      string
	ArabicName       *string
	StudentNumber    string
	CurrentGrade     *string
	MarkedByUsername *string
}

type AttendanceStats struct {
	PresentCount int64
	AbsentCount  int64
	LateCount    int64
	ExcusedCount int64
	TotalRecords int64
}

// Permission is one row of the role×module matrix. At most one row exists
// per (role, module) pair; a missing row means no access.
type Permission struct {
	Role      string
	Module    string
	CanRead   bool
	CanWrite  bool
	CanDelete bool
}
