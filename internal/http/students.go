package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/munaburhan/school-system/internal/model"
	"github.com/munaburhan/school-system/internal/repository"
)

type studentResponse struct {
	ID             string          `json:"id"`
	StudentID      string          `json:"student_id"`
	EnglishName    string          `json:"english_name"`
	ArabicName     *string         `json:"arabic_name"`
	CurrentGrade   *string         `json:"current_grade"`
	Status         string          `json:"status"`
	DateOfBirth    *string         `json:"date_of_birth"`
	ContactInfo    json.RawMessage `json:"contact_info"`
	EnrollmentDate *string         `json:"enrollment_date"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func mapStudent(st model.Student) studentResponse {
	return studentResponse{
		ID:             st.ID,
		StudentID:      st.StudentID,
		EnglishName:    st.EnglishName,
		ArabicName:     st.ArabicName,
		CurrentGrade:   st.CurrentGrade,
		Status:         st.Status,
		DateOfBirth:    fmtDate(st.DateOfBirth),
		ContactInfo:    st.ContactInfo,
		EnrollmentDate: fmtDate(st.EnrollmentDate),
		CreatedAt:      st.CreatedAt,
		UpdatedAt:      st.UpdatedAt,
	}
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.StudentFilter{
		Status: query.Get("status"),
		Grade:  query.Get("grade"),
		Search: query.Get("search"),
		Page:   queryInt(query.Get("page"), 1),
		Limit:  queryInt(query.Get("limit"), 50),
	}

	students, total, err := s.store.ListStudents(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch students")
		return
	}

	items := make([]studentResponse, 0, len(students))
	for _, st := range students {
		items = append(items, mapStudent(st))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"students":   items,
		"pagination": newPagination(filter.Page, filter.Limit, total),
	})
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	student, err := s.store.GetStudent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Student not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch student")
		return
	}
	writeJSON(w, http.StatusOK, mapStudent(student))
}

type createStudentRequest struct {
	StudentID      string          `json:"student_id"`
	EnglishName    string          `json:"english_name"`
	ArabicName     *string         `json:"arabic_name"`
	CurrentGrade   *string         `json:"current_grade"`
	Status         string          `json:"status"`
	DateOfBirth    *string         `json:"date_of_birth"`
	ContactInfo    json.RawMessage `json:"contact_info"`
	EnrollmentDate *string         `json:"enrollment_date"`
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.StudentID == "" || req.EnglishName == "" {
		writeError(w, http.StatusBadRequest, "Student ID and English name are required")
		return
	}
	if req.Status == "" {
		req.Status = "active"
	}

	dateOfBirth, err := parseDateField(req.DateOfBirth)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_of_birth")
		return
	}
	enrollmentDate, err := parseDateField(req.EnrollmentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid enrollment_date")
		return
	}

	student, err := s.store.CreateStudent(r.Context(), uuid.NewString(), repository.StudentInput{
		StudentID:      req.StudentID,
		EnglishName:    req.EnglishName,
		ArabicName:     req.ArabicName,
		CurrentGrade:   req.CurrentGrade,
		Status:         req.Status,
		DateOfBirth:    dateOfBirth,
		ContactInfo:    req.ContactInfo,
		EnrollmentDate: enrollmentDate,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "Student ID already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create student")
		return
	}

	writeJSON(w, http.StatusCreated, mapStudent(student))
}

type updateStudentRequest struct {
	StudentID      *string         `json:"student_id"`
	EnglishName    *string         `json:"english_name"`
	ArabicName     *string         `json:"arabic_name"`
	CurrentGrade   *string         `json:"current_grade"`
	Status         *string         `json:"status"`
	DateOfBirth    *string         `json:"date_of_birth"`
	ContactInfo    json.RawMessage `json:"contact_info"`
	EnrollmentDate *string         `json:"enrollment_date"`
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	var req updateStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	dateOfBirth, err := parseDateField(req.DateOfBirth)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_of_birth")
		return
	}
	enrollmentDate, err := parseDateField(req.EnrollmentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid enrollment_date")
		return
	}

	student, err := s.store.UpdateStudent(r.Context(), chi.URLParam(r, "id"), repository.StudentUpdate{
		StudentID:      req.StudentID,
		EnglishName:    req.EnglishName,
		ArabicName:     req.ArabicName,
		CurrentGrade:   req.CurrentGrade,
		Status:         req.Status,
		DateOfBirth:    dateOfBirth,
		ContactInfo:    req.ContactInfo,
		EnrollmentDate: enrollmentDate,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Student not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "Student ID already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update student")
		return
	}

	writeJSON(w, http.StatusOK, mapStudent(student))
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteStudent(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Student not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete student")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Student deleted successfully"})
}

// Shared handler helpers

func queryInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func newPagination(page, limit, total int) pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

func fmtDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format("2006-01-02")
	return &formatted
}

func parseDateField(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
