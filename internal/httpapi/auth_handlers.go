package httpapi

import (
	"net/http"

	"github.com/kisuya/reasoncard/internal/apperr"
	"github.com/kisuya/reasoncard/internal/auth"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Locale   string `json:"locale"`
}

type authResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	if req.Email == "" || len(req.Password) < 8 {
		writeError(w, requestIDFrom(ctx), apperr.InvalidInput("email is required and password must be at least 8 characters"))
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	user, err := s.store.CreateUser(req.Email, hash, req.Locale)
	if err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	token, err := s.tokens.Issue(user.ID, s.clock.Now())
	if err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, UserID: user.ID})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	user, err := s.store.GetUserByEmail(req.Email)
	if err != nil || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		writeError(w, requestIDFrom(ctx), apperr.New(apperr.CodeInvalidCredentials, "invalid email or password"))
		return
	}
	token, err := s.tokens.Issue(user.ID, s.clock.Now())
	if err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, UserID: user.ID})
}

type meResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Locale string `json:"locale"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := userIDFrom(ctx)
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{ID: user.ID, Email: user.Email, Locale: user.Locale})
}
