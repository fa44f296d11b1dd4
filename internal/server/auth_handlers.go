package server

import (
	"net/http"

	"cadenza/internal/auth"

	"github.com/sirupsen/logrus"
)

// tokenResponse is returned by register and login
type tokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// handleRegister handles registration API requests
func (cs *CatalogServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if !cs.decodeJSON(w, r, &in) {
		return
	}

	token, _, err := cs.auth.Register(r.Context(), in)
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}

	cs.respondJSON(w, http.StatusCreated, tokenResponse{
		Message: "User registered successfully",
		Token:   token,
	})
}

// handleLogin handles login API requests
func (cs *CatalogServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if !cs.decodeJSON(w, r, &in) {
		return
	}

	token, user, err := cs.auth.Login(r.Context(), in)
	if err != nil {
		cs.logger.WithError(err).WithFields(logrus.Fields{
			"email":    in.Email,
			"username": in.Username,
		}).Warn("Failed login attempt")
		cs.respondWithServiceError(w, r, err)
		return
	}

	cs.logger.WithField("user_id", user.ID).Debug("Login succeeded")

	cs.respondJSON(w, http.StatusOK, tokenResponse{
		Message: "User logged in successfully",
		Token:   token,
	})
}

// handleGetUser returns the authenticated user without its password hash
func (cs *CatalogServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	cs.respondJSON(w, http.StatusOK, currentUser(r))
}
