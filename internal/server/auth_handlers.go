package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casekit/formfill/internal/auth"
	"github.com/casekit/formfill/internal/caserec"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string        `json:"token"`
	User  *caserec.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "email and a password of at least 8 characters are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Printf("hash password: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not create account")
		return
	}
	user := &caserec.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, caserec.ErrEmailTaken) {
			writeError(w, http.StatusConflict, codeEmailTaken, "email already registered")
			return
		}
		s.logger.Printf("create user: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not create account")
		return
	}

	s.writeSession(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, caserec.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "invalid email or password")
			return
		}
		s.logger.Printf("get user: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not sign in")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "invalid email or password")
		return
	}

	s.writeSession(w, http.StatusOK, user)
}

func (s *Server) writeSession(w http.ResponseWriter, status int, user *caserec.User) {
	token, err := auth.GenerateToken(s.jwtSecret, user.ID, user.Email)
	if err != nil {
		s.logger.Printf("sign token: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not issue session")
		return
	}
	writeJSON(w, status, sessionResponse{Token: token, User: user})
}
