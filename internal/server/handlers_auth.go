package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docchat/internal/apperr"
	"github.com/ziadkadry99/docchat/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// readLogin accepts either a JSON body or a form post.
func readLogin(r *http.Request) (loginRequest, error) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, apperr.Wrap(apperr.ErrInvalidInput, "server.login", err)
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, apperr.Wrap(apperr.ErrInvalidInput, "server.login", err)
	}
	req.Username = r.PostFormValue("username")
	req.Password = r.PostFormValue("password")
	return req, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := readLogin(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure{Message: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, failure{Message: "Username and password are required"})
		return
	}

	user, err := s.deps.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if apperr.IsKind(err, apperr.ErrUnauthorized) {
			s.logger.Info("login rejected", zap.String("username", req.Username))
			writeJSON(w, http.StatusUnauthorized, failure{Message: "Invalid username or password"})
			return
		}
		s.writeError(w, r, err)
		return
	}

	token, err := s.deps.Sessions.GenerateToken(user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.SetCookie(w, auth.SessionCookie(token, s.deps.Sessions.TokenDuration(), s.cfg.CookieSecure))

	s.logger.Info("login", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearedCookie(s.cfg.CookieSecure))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.CurrentUser(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
	})
}
