package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/munaburhan/school-system/internal/auth"
	"github.com/munaburhan/school-system/internal/config"
	"github.com/munaburhan/school-system/internal/importer"
	"github.com/munaburhan/school-system/internal/model"
	"github.com/munaburhan/school-system/internal/repository"
)

type Server struct {
	cfg      config.Config
	store    *repository.Store
	importer *importer.Importer
	redis    *redis.Client
}

func NewServer(cfg config.Config, store *repository.Store, redisClient *redis.Client) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		importer: importer.New(store),
		redis:    redisClient,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(corsMiddleware(s.cfg.FrontendOrigin))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "School Management System API is running"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.With(s.authMiddleware).Get("/auth/me", s.handleGetMe)
		r.With(s.authMiddleware).Post("/auth/logout", s.handleLogout)

		r.Route("/students", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.With(s.checkPermission("students", "read")).Get("/", s.handleListStudents)
			r.With(s.checkPermission("students", "read")).Get("/{id}", s.handleGetStudent)
			r.With(s.checkPermission("students", "write")).Post("/", s.handleCreateStudent)
			r.With(s.checkPermission("students", "write")).Put("/{id}", s.handleUpdateStudent)
			r.With(s.checkPermission("students", "delete")).Delete("/{id}", s.handleDeleteStudent)
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.With(s.checkPermission("staff", "read")).Get("/", s.handleListStaff)
			r.With(s.checkPermission("staff", "read")).Get("/{id}", s.handleGetStaff)
			r.With(s.checkPermission("staff", "write")).Post("/", s.handleCreateStaff)
			r.With(s.checkPermission("staff", "write")).Put("/{id}", s.handleUpdateStaff)
			r.With(s.checkPermission("staff", "delete")).Delete("/{id}", s.handleDeleteStaff)
		})

		r.Route("/attendance", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.With(s.checkPermission("attendance", "write")).Post("/", s.handleMarkAttendance)
			r.With(s.checkPermission("attendance", "read")).Get("/", s.handleListAttendance)
			r.With(s.checkPermission("attendance", "read")).Get("/stats", s.handleAttendanceStats)
		})

		r.Route("/permissions", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.With(s.checkPermission("permissions", "read")).Get("/", s.handleListPermissions)
			r.With(s.checkPermission("permissions", "write")).Put("/", s.handleUpsertPermission)
		})

		r.Route("/import", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.requireRole("admin"))
			r.Post("/students", s.handleImportStudents)
			r.Post("/staff", s.handleImportStaff)
			r.Get("/template/{type}", s.handleDownloadTemplate)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})

	return r
}

// Auth

// authUser is the request-scoped user projection. The password hash never
// leaves the repository layer.
type authUser struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Role     string  `json:"role"`
	Email    *string `json:"email"`
	IsActive bool    `json:"is_active"`
}

type userKey struct{}

// authMiddleware resolves the bearer token to a live user record. The active
// flag is re-read from the database on every request so that deactivating an
// account takes effect immediately, before its tokens expire.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "No token provided")
			return
		}

		claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "Token expired")
				return
			}
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		user, err := s.store.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, http.StatusUnauthorized, "User not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "Authentication failed")
			return
		}

		if !user.IsActive {
			writeError(w, http.StatusUnauthorized, "User account is inactive")
			return
		}

		ctx := context.WithValue(r.Context(), userKey{}, &authUser{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role,
			Email:    user.Email,
			IsActive: user.IsActive,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) *authUser {
	value := ctx.Value(userKey{})
	user, _ := value.(*authUser)
	return user
}

func (s *Server) requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := userFromContext(r.Context())
			if user == nil {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "Insufficient permissions")
		})
	}
}

// permissionAllows is the pure allow/deny decision over one matrix entry.
// Unknown actions deny; there is no default-allow path anywhere.
func permissionAllows(perm model.Permission, action string) bool {
	switch action {
	case "read":
		return perm.CanRead
	case "write":
		return perm.CanWrite
	case "delete":
		return perm.CanDelete
	default:
		return false
	}
}

// checkPermission gates a route on the role×module matrix. A missing entry
// denies: permissions are granted explicitly or not at all.
func (s *Server) checkPermission(module, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := userFromContext(r.Context())
			if user == nil {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			perm, err := s.store.GetPermission(r.Context(), user.Role, module)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					writeError(w, http.StatusForbidden, "No permissions found for this module")
					return
				}
				writeError(w, http.StatusInternalServerError, "Permission check failed")
				return
			}

			if !permissionAllows(perm, action) {
				writeError(w, http.StatusForbidden, "You don't have permission to "+action+" "+module)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Helpers

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowedOrigin == "*" || origin == allowedOrigin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	return json.NewDecoder(r.Body).Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
