package importer

import (
	"context"

	"github.com/google/uuid"

	"github.com/munaburhan/school-system/internal/crypto"
	"github.com/munaburhan/school-system/internal/repository"
)

const defaultStaffPassword = "default123"

// ImportStaff is a compound import: every row upserts a login account and
// the linked staff profile inside one transaction, so a failed profile write
// rolls the account write back with it. Earlier rows stay committed.
func (imp *Importer) ImportStaff(ctx context.Context, rows []Row) Report {
	report := newReport(len(rows))

	for _, row := range rows {
		username := resolveField(row.Cells, "username", "Username")
		password := resolveField(row.Cells, "password", "Password")
		if password == "" {
			password = defaultStaffPassword
		}
		email := resolveField(row.Cells, "email", "Email")
		englishName := resolveField(row.Cells, "english_name", "English Name", "Name")
		arabicName := resolveField(row.Cells, "arabic_name", "Arabic Name")
		role := resolveField(row.Cells, "role", "Role")
		if role == "" {
			role = "teacher"
		}
		department := resolveField(row.Cells, "department", "Department")

		if username == "" || englishName == "" {
			report.fail(row, "Missing required fields (username or english_name)")
			continue
		}

		passwordHash, err := crypto.HashPassword(password)
		if err != nil {
			report.fail(row, err.Error())
			continue
		}

		input := repository.StaffInput{
			EnglishName: englishName,
			ArabicName:  &arabicName,
			Role:        role,
		}
		if department != "" {
			input.Department = &department
		}
		var emailPtr *string
		if email != "" {
			emailPtr = &email
		}

		err = imp.store.UpsertStaffWithUser(ctx, uuid.NewString(), uuid.NewString(), username, passwordHash, emailPtr, role, input)
		if err != nil {
			report.fail(row, err.Error())
			continue
		}
		report.Successful++
	}

	return report
}
