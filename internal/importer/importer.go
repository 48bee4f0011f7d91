// Package importer implements the bulk spreadsheet import pipeline: parse an
// uploaded workbook or CSV into rows, map heterogeneous column headers onto
// canonical fields, and upsert each row independently while accumulating a
// partial-failure report.
package importer

import (
	"errors"

	"github.com/munaburhan/school-system/internal/repository"
)

// ErrEmptyFile is returned when the sheet parses but holds no data rows.
var ErrEmptyFile = errors.New("file is empty")

// Row is one data row of the input sheet, keyed by the header labels exactly
// as they appeared. Index is the 0-based position among the data rows; the
// spreadsheet row number reported to the caller is Index+2 (1-based, plus
// the header row).
type Row struct {
	Index int
	Cells map[string]string
}

type RowError struct {
	Row   int               `json:"row"`
	Error string            `json:"error"`
	Data  map[string]string `json:"data"`
}

type Report struct {
	Total      int        `json:"total"`
	Successful int        `json:"successful"`
	Failed     int        `json:"failed"`
	Errors     []RowError `json:"errors"`
}

type Importer struct {
	store *repository.Store
}

func New(store *repository.Store) *Importer {
	return &Importer{store: store}
}

func newReport(total int) Report {
	return Report{Total: total, Errors: []RowError{}}
}

func (rep *Report) fail(row Row, message string) {
	rep.Failed++
	rep.Errors = append(rep.Errors, RowError{
		Row:   row.Index + 2,
		Error: message,
		Data:  row.Cells,
	})
}
