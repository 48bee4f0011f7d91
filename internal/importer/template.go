package importer

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

var templateSheets = map[string][][]interface{}{
	"students": {
		{"student_id", "english_name", "arabic_name", "current_grade", "date_of_birth", "status"},
		{"S001", "John Smith", "جون سميث", "Grade 10", "2008-05-15", "active"},
		{"S002", "Sarah Ahmed", "سارة أحمد", "Grade 9", "2009-03-20", "active"},
	},
	"staff": {
		{"username", "password", "email", "english_name", "arabic_name", "role", "department"},
		{"teacher1", "default123", "teacher1@school.com", "Ahmed Ali", "أحمد علي", "teacher", "Mathematics"},
		{"principal1", "default123", "principal@school.com", "Fatima Hassan", "فاطمة حسن", "principal", "Administration"},
	},
}

// BuildTemplate generates an .xlsx workbook with the canonical column
// headers and example rows for the given record kind.
func BuildTemplate(kind string) (*bytes.Buffer, error) {
	sheet, ok := templateSheets[kind]
	if !ok {
		return nil, fmt.Errorf("unknown template type %q", kind)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", kind); err != nil {
		return nil, err
	}
	for i, row := range sheet {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(kind, cell, &row); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}
