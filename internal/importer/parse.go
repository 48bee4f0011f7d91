package importer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ParseFile reads a tabular file into ordered rows keyed by header label.
// The first sheet is used for workbooks; the first row is always the header.
func ParseFile(path string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return parseXLSX(path)
	case ".xls":
		return parseXLS(path)
	case ".csv":
		return parseCSV(path)
	default:
		return nil, fmt.Errorf("unsupported file type %s", filepath.Ext(path))
	}
}

func parseXLSX(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptyFile
	}
	// Raw values keep date cells as their underlying serial numbers, which
	// the date inference converts the same way for every input format.
	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	return tableToRows(records)
}

func parseXLS(path string) ([]Row, error) {
	workbook, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, err
	}
	sheet := workbook.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptyFile
	}

	var records [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		var cells []string
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		records = append(records, cells)
	}
	return tableToRows(records)
}

func parseCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return tableToRows(records)
}

// tableToRows turns a header row plus data rows into label→value maps,
// dropping rows that are entirely blank (trailing empty spreadsheet rows).
func tableToRows(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []Row
	for _, record := range records[1:] {
		cells := make(map[string]string, len(header))
		blank := true
		for i, label := range header {
			if label == "" {
				continue
			}
			var value string
			if i < len(record) {
				value = record[i]
			}
			if strings.TrimSpace(value) != "" {
				blank = false
			}
			cells[label] = value
		}
		if blank {
			continue
		}
		rows = append(rows, Row{Index: len(rows), Cells: cells})
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}
