package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/munaburhan/school-system/internal/model"
	"github.com/munaburhan/school-system/internal/repository"
)

type markAttendanceRequest struct {
	StudentID string  `json:"student_id"`
	Date      string  `json:"date"`
	Status    string  `json:"status"`
	Notes     *string `json:"notes"`
}

type attendanceResponse struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Date      string    `json:"date"`
	Status    string    `json:"status"`
	MarkedBy  *string   `json:"marked_by"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

type attendanceRecordResponse struct {
	attendanceResponse
	EnglishName      string  `json:"english_name"`
	ArabicName       *string `json:"arabic_name"`
	StudentNumber    string  `json:"student_number"`
	CurrentGrade     *string `json:"current_grade"`
	MarkedByUsername *string `json:"marked_by_username"`
}

func mapAttendance(att model.Attendance) attendanceResponse {
	return attendanceResponse{
		ID:        att.ID,
		StudentID: att.StudentID,
		Date:      att.Date.Format("2006-01-02"),
		Status:    att.Status,
		MarkedBy:  att.MarkedBy,
		Notes:     att.Notes,
		CreatedAt: att.CreatedAt,
	}
}

func (s *Server) handleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req markAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.StudentID == "" || req.Date == "" || req.Status == "" {
		writeError(w, http.StatusBadRequest, "Student ID, date, and status are required")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date")
		return
	}

	user := userFromContext(r.Context())
	record, err := s.store.MarkAttendance(r.Context(), uuid.NewString(), req.StudentID, date, req.Status, user.ID, req.Notes)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to mark attendance")
		return
	}

	writeJSON(w, http.StatusCreated, mapAttendance(record))
}

func (s *Server) handleListAttendance(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.AttendanceFilter{
		StudentID: query.Get("student_id"),
		Status:    query.Get("status"),
		Page:      queryInt(query.Get("page"), 1),
		Limit:     queryInt(query.Get("limit"), 100),
	}

	var err error
	if filter.Date, err = parseDateQuery(query.Get("date")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date")
		return
	}
	if filter.StartDate, err = parseDateQuery(query.Get("start_date")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date")
		return
	}
	if filter.EndDate, err = parseDateQuery(query.Get("end_date")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date")
		return
	}

	records, err := s.store.ListAttendance(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch attendance")
		return
	}

	items := make([]attendanceRecordResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, attendanceRecordResponse{
			attendanceResponse: mapAttendance(rec.Attendance),
			EnglishName:        rec.EnglishName,
			ArabicName:         rec.ArabicName,
			StudentNumber:      rec.StudentNumber,
			CurrentGrade:       rec.CurrentGrade,
			MarkedByUsername:   rec.MarkedByUsername,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"attendance": items})
}

type attendanceStatsResponse struct {
	PresentCount int64 `json:"present_count"`
	AbsentCount  int64 `json:"absent_count"`
	LateCount    int64 `json:"late_count"`
	ExcusedCount int64 `json:"excused_count"`
	TotalRecords int64 `json:"total_records"`
}

func (s *Server) handleAttendanceStats(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.AttendanceStatsFilter{
		Grade: query.Get("grade"),
	}

	var err error
	if filter.StartDate, err = parseDateQuery(query.Get("start_date")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date")
		return
	}
	if filter.EndDate, err = parseDateQuery(query.Get("end_date")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date")
		return
	}

	stats, err := s.store.AttendanceStats(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch attendance statistics")
		return
	}

	writeJSON(w, http.StatusOK, attendanceStatsResponse{
		PresentCount: stats.PresentCount,
		AbsentCount:  stats.AbsentCount,
		LateCount:    stats.LateCount,
		ExcusedCount: stats.ExcusedCount,
		TotalRecords: stats.TotalRecords,
	})
}

func parseDateQuery(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
