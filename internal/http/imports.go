package http

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/munaburhan/school-system/internal/importer"
)

var allowedUploadExt = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".csv":  true,
}

const maxUploadBytes = 32 << 20

type importResponse struct {
	Message string          `json:"message"`
	Results importer.Report `json:"results"`
}

// saveUpload writes the uploaded file into the uploads directory and returns
// its path. The extension is checked before anything touches the content.
// On failure the error response has already been written.
func (s *Server) saveUpload(w http.ResponseWriter, r *http.Request) (string, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return "", false
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedUploadExt[ext] {
		writeError(w, http.StatusBadRequest, "Only Excel and CSV files are allowed")
		return "", false
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store uploaded file")
		return "", false
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(header.Filename))
	path := filepath.Join(s.cfg.UploadDir, name)
	out, err := os.Create(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store uploaded file")
		return "", false
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(path)
		writeError(w, http.StatusInternalServerError, "Failed to store uploaded file")
		return "", false
	}
	out.Close()

	return path, true
}

// removeUpload is the mandatory cleanup: the temp file goes away on success
// and on every failure path alike.
func removeUpload(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("remove upload %s: %v", path, err)
	}
}

func (s *Server) handleImportStudents(w http.ResponseWriter, r *http.Request) {
	path, ok := s.saveUpload(w, r)
	if !ok {
		return
	}
	defer removeUpload(path)

	rows, err := importer.ParseFile(path)
	if err != nil {
		if errors.Is(err, importer.ErrEmptyFile) {
			writeError(w, http.StatusBadRequest, "Excel file is empty")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to import students: "+err.Error())
		return
	}

	report := s.importer.ImportStudents(r.Context(), rows)
	writeJSON(w, http.StatusOK, importResponse{Message: "Import completed", Results: report})
}

func (s *Server) handleImportStaff(w http.ResponseWriter, r *http.Request) {
	path, ok := s.saveUpload(w, r)
	if !ok {
		return
	}
	defer removeUpload(path)

	rows, err := importer.ParseFile(path)
	if err != nil {
		if errors.Is(err, importer.ErrEmptyFile) {
			writeError(w, http.StatusBadRequest, "Excel file is empty")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to import staff: "+err.Error())
		return
	}

	report := s.importer.ImportStaff(r.Context(), rows)
	writeJSON(w, http.StatusOK, importResponse{Message: "Import completed", Results: report})
}

func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "type")
	buf, err := importer.BuildTemplate(kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid template type")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_template.xlsx", kind))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	_, _ = w.Write(buf.Bytes())
}
