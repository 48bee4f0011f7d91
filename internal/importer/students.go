package importer

import (
	"context"

	"github.com/google/uuid"

	"github.com/munaburhan/school-system/internal/repository"
)

// ImportStudents upserts every row independently; one bad row never aborts
// the batch.
func (imp *Importer) ImportStudents(ctx context.Context, rows []Row) Report {
	report := newReport(len(rows))

	for _, row := range rows {
		studentID := resolveField(row.Cells, "student_id", "Student ID", "ID")
		englishName := resolveField(row.Cells, "english_name", "English Name", "Name")
		arabicName := resolveField(row.Cells, "arabic_name", "Arabic Name")
		grade := resolveField(row.Cells, "current_grade", "Grade", "Current Grade")
		dateOfBirth := ParseDate(resolveField(row.Cells, "date_of_birth", "Date of Birth", "DOB"))
		status := resolveField(row.Cells, "status", "Status")
		if status == "" {
			status = "active"
		}

		if studentID == "" || englishName == "" {
			report.fail(row, "Missing required fields (student_id or english_name)")
			continue
		}

		input := repository.StudentInput{
			StudentID:   studentID,
			EnglishName: englishName,
			ArabicName:  &arabicName,
			Status:      status,
			DateOfBirth: dateOfBirth,
		}
		if grade != "" {
			input.CurrentGrade = &grade
		}

		if err := imp.store.UpsertStudent(ctx, uuid.NewString(), input); err != nil {
			report.fail(row, err.Error())
			continue
		}
		report.Successful++
	}

	return report
}
