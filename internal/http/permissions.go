package http

import (
	"net/http"

	"github.com/munaburhan/school-system/internal/model"
)

type permissionEntry struct {
	Role      string `json:"role"`
	Module    string `json:"module"`
	CanRead   bool   `json:"can_read"`
	CanWrite  bool   `json:"can_write"`
	CanDelete bool   `json:"can_delete"`
}

func (s *Server) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := s.store.ListPermissions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch permissions")
		return
	}

	items := make([]permissionEntry, 0, len(perms))
	for _, perm := range perms {
		items = append(items, permissionEntry{
			Role:      perm.Role,
			Module:    perm.Module,
			CanRead:   perm.CanRead,
			CanWrite:  perm.CanWrite,
			CanDelete: perm.CanDelete,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"permissions": items})
}

func (s *Server) handleUpsertPermission(w http.ResponseWriter, r *http.Request) {
	var req permissionEntry
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Role == "" || req.Module == "" {
		writeError(w, http.StatusBadRequest, "Role and module are required")
		return
	}

	err := s.store.UpsertPermission(r.Context(), model.Permission{
		Role:      req.Role,
		Module:    req.Module,
		CanRead:   req.CanRead,
		CanWrite:  req.CanWrite,
		CanDelete: req.CanDelete,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update permission")
		return
	}

	writeJSON(w, http.StatusOK, req)
}
