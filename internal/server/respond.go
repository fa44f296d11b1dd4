package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"cadenza/internal/auth"
	"cadenza/internal/catalog"

	"github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Field   string `json:"field,omitempty"`
}

// respondJSON writes v as JSON with the given status code
func (cs *CatalogServer) respondJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		cs.logger.WithError(err).Warn("Failed to encode response")
	}
}

// respondWithError sends a structured error response
func (cs *CatalogServer) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	cs.respondWithFieldError(w, r, statusCode, "", message, err)
}

func (cs *CatalogServer) respondWithFieldError(w http.ResponseWriter, r *http.Request, statusCode int, field, message string, err error) {
	logEntry := cs.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})

	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	cs.respondJSON(w, statusCode, ErrorResponse{
		Success: false,
		Message: message,
		Code:    statusCode,
		Field:   field,
	})
}

// respondWithServiceError maps an error from the catalog, auth or player
// services to a status code and message. Unknown errors become a 500 whose
// detail is only logged.
func (cs *CatalogServer) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *catalog.ValidationError
		missing    *catalog.NotFoundError
	)

	switch {
	case errors.As(err, &validation):
		cs.respondWithFieldError(w, r, http.StatusBadRequest, validation.Field, validation.Message, err)
	case errors.Is(err, auth.ErrPasswordMismatch):
		cs.respondWithFieldError(w, r, http.StatusBadRequest, "confirmPassword", "Passwords do not match", err)
	case errors.Is(err, auth.ErrUserExists):
		cs.respondWithError(w, r, http.StatusBadRequest, "User already exists", err)
	case errors.Is(err, catalog.ErrAlreadyInPlaylist):
		cs.respondWithError(w, r, http.StatusBadRequest, "Song already in playlist", err)
	case errors.Is(err, catalog.ErrInvalidID):
		cs.respondWithError(w, r, http.StatusBadRequest, "Invalid id", err)
	case errors.As(err, &missing):
		cs.respondWithError(w, r, http.StatusNotFound, missing.Message, err)
	case errors.Is(err, catalog.ErrNotFound):
		cs.respondWithError(w, r, http.StatusNotFound, "Not found", err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		cs.respondWithError(w, r, http.StatusUnauthorized, "Invalid credentials", err)
	case errors.Is(err, auth.ErrUnauthorized):
		cs.respondWithError(w, r, http.StatusUnauthorized, "Not authorized, token failed", err)
	default:
		cs.respondWithError(w, r, http.StatusInternalServerError, "Internal server error", err)
	}
}

// decodeJSON reads a JSON request body into v
func (cs *CatalogServer) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		cs.respondWithError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}
