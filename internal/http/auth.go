package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/munaburhan/school-system/internal/auth"
	"github.com/munaburhan/school-system/internal/crypto"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  loginUser `json:"user"`
}

type loginUser struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Role     string  `json:"role"`
	Email    *string `json:"email"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	if s.loginThrottled(r.Context(), req.Username) {
		writeError(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.bumpLoginAttempts(r.Context(), req.Username)
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if !user.IsActive {
		writeError(w, http.StatusUnauthorized, "Account is inactive")
		return
	}

	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.bumpLoginAttempts(r.Context(), req.Username)
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.TokenTTL, auth.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	s.clearLoginAttempts(r.Context(), req.Username)

	writeJSON(w, http.StatusOK, loginResponse{
		Token: token,
		User: loginUser{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role,
			Email:    user.Email,
		},
	})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// Logout is client-side with stateless tokens; the endpoint exists so the
// frontend has something to call.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Login throttling. Best-effort: a nil redis client disables it, and redis
// errors never block a login.

func loginAttemptsKey(username string) string {
	return "login_attempts:" + username
}

func (s *Server) loginThrottled(ctx context.Context, username string) bool {
	if s.redis == nil {
		return false
	}
	count, err := s.redis.Get(ctx, loginAttemptsKey(username)).Int()
	if err != nil {
		return false
	}
	return count >= s.cfg.LoginMaxAttempts
}

func (s *Server) bumpLoginAttempts(ctx context.Context, username string) {
	if s.redis == nil {
		return
	}
	count, err := s.redis.Incr(ctx, loginAttemptsKey(username)).Result()
	if err != nil {
		log.Printf("login throttle incr: %v", err)
		return
	}
	if count == 1 {
		_ = s.redis.Expire(ctx, loginAttemptsKey(username), s.cfg.LoginAttemptsTTL).Err()
	}
}

func (s *Server) clearLoginAttempts(ctx context.Context, username string) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, loginAttemptsKey(username)).Err()
}
