package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/munaburhan/school-system/internal/crypto"
	"github.com/munaburhan/school-system/internal/model"
	"github.com/munaburhan/school-system/internal/repository"
)

type staffResponse struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	EnglishName string          `json:"english_name"`
	ArabicName  *string         `json:"arabic_name"`
	Role        string          `json:"role"`
	Department  *string         `json:"department"`
	HireDate    *string         `json:"hire_date"`
	ContactInfo json.RawMessage `json:"contact_info"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Username    *string         `json:"username,omitempty"`
	Email       *string         `json:"email,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

func mapStaff(st model.Staff) staffResponse {
	return staffResponse{
		ID:          st.ID,
		UserID:      st.UserID,
		EnglishName: st.EnglishName,
		ArabicName:  st.ArabicName,
		Role:        st.Role,
		Department:  st.Department,
		HireDate:    fmtDate(st.HireDate),
		ContactInfo: st.ContactInfo,
		CreatedAt:   st.CreatedAt,
		UpdatedAt:   st.UpdatedAt,
	}
}

func mapStaffDetail(st model.StaffDetail) staffResponse {
	resp := mapStaff(st.Staff)
	resp.Username = st.Username
	resp.Email = st.Email
	resp.IsActive = st.IsActive
	return resp
}

func (s *Server) handleListStaff(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.StaffFilter{
		Role:   query.Get("role"),
		Search: query.Get("search"),
		Page:   queryInt(query.Get("page"), 1),
		Limit:  queryInt(query.Get("limit"), 50),
	}

	members, total, err := s.store.ListStaff(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch staff")
		return
	}

	items := make([]staffResponse, 0, len(members))
	for _, st := range members {
		items = append(items, mapStaffDetail(st))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"staff":      items,
		"pagination": newPagination(filter.Page, filter.Limit, total),
	})
}

func (s *Server) handleGetStaff(w http.ResponseWriter, r *http.Request) {
	member, err := s.store.GetStaff(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Staff member not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch staff member")
		return
	}
	writeJSON(w, http.StatusOK, mapStaffDetail(member))
}

type createStaffRequest struct {
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	Email       *string         `json:"email"`
	EnglishName string          `json:"english_name"`
	ArabicName  *string         `json:"arabic_name"`
	Role        string          `json:"role"`
	Department  *string         `json:"department"`
	HireDate    *string         `json:"hire_date"`
	ContactInfo json.RawMessage `json:"contact_info"`
}

func (s *Server) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	var req createStaffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" || req.EnglishName == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "Username, password, English name, and role are required")
		return
	}

	hireDate, err := parseDateField(req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date")
		return
	}

	passwordHash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create staff member")
		return
	}

	created, err := s.store.CreateStaffWithUser(r.Context(), uuid.NewString(), uuid.NewString(), req.Username, passwordHash, req.Email, repository.StaffInput{
		EnglishName: req.EnglishName,
		ArabicName:  req.ArabicName,
		Role:        req.Role,
		Department:  req.Department,
		HireDate:    hireDate,
		ContactInfo: req.ContactInfo,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "Username already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create staff member")
		return
	}

	writeJSON(w, http.StatusCreated, mapStaff(created))
}

type updateStaffRequest struct {
	EnglishName *string         `json:"english_name"`
	ArabicName  *string         `json:"arabic_name"`
	Role        *string         `json:"role"`
	Department  *string         `json:"department"`
	HireDate    *string         `json:"hire_date"`
	ContactInfo json.RawMessage `json:"contact_info"`
}

func (s *Server) handleUpdateStaff(w http.ResponseWriter, r *http.Request) {
	var req updateStaffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	hireDate, err := parseDateField(req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date")
		return
	}

	updated, err := s.store.UpdateStaff(r.Context(), chi.URLParam(r, "id"), repository.StaffUpdate{
		EnglishName: req.EnglishName,
		ArabicName:  req.ArabicName,
		Role:        req.Role,
		Department:  req.Department,
		HireDate:    hireDate,
		ContactInfo: req.ContactInfo,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Staff member not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update staff member")
		return
	}

	writeJSON(w, http.StatusOK, mapStaff(updated))
}

func (s *Server) handleDeleteStaff(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteStaff(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Staff member not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete staff member")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Staff member deleted successfully"})
}
