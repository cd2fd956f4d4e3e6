// Package web exposes registered resources over HTTP: list endpoints backed
// by the query engine, write endpoints backed by the derived schema
// variants, and JSON error rendering for both.
package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/restfold/restfold/internal/query"
	"github.com/restfold/restfold/internal/schema/derive"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ValidationErrorResponse represents validation errors
type ValidationErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Fields  map[string][]string `json:"fields"`
}

// RenderJSON writes v as a JSON response with the given status
func RenderJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// RenderError maps an error to its HTTP status and renders it. Query
// parameter errors are client errors with structured details; validation
// errors carry per-field messages; anything unrecognized is a 500.
func RenderError(w http.ResponseWriter, err error) {
	var pathErr *query.PathError
	if errors.As(err, &pathErr) {
		RenderJSON(w, http.StatusBadRequest, &ErrorResponse{
			Error:   "error",
			Message: pathErr.Error(),
			Code:    "invalid_query",
			Details: map[string]interface{}{
				"path":    pathErr.Path,
				"segment": pathErr.Segment,
				"kind":    pathErr.Kind.String(),
			},
		})
		return
	}

	var coErr *query.CoercionError
	if errors.As(err, &coErr) {
		RenderJSON(w, http.StatusBadRequest, &ErrorResponse{
			Error:   "error",
			Message: coErr.Error(),
			Code:    "invalid_query",
			Details: map[string]interface{}{
				"path":  coErr.Path,
				"value": coErr.Raw,
			},
		})
		return
	}

	var pgErr *query.PaginationError
	if errors.As(err, &pgErr) {
		RenderJSON(w, http.StatusBadRequest, &ErrorResponse{
			Error:   "error",
			Message: pgErr.Error(),
			Code:    "invalid_query",
			Details: map[string]interface{}{
				"param": pgErr.Param,
			},
		})
		return
	}

	var valErr *derive.ValidationErrors
	if errors.As(err, &valErr) {
		RenderJSON(w, http.StatusUnprocessableEntity, &ValidationErrorResponse{
			Error:   "validation_failed",
			Message: "The request contains invalid data",
			Code:    "validation_error",
			Fields:  valErr.Fields,
		})
		return
	}

	if errors.Is(err, sql.ErrNoRows) {
		RenderNotFound(w, "record not found")
		return
	}

	RenderJSON(w, http.StatusInternalServerError, &ErrorResponse{
		Error:   "error",
		Message: "internal server error",
		Code:    "internal_error",
	})
}

// RenderBadRequest renders a 400 Bad Request error
func RenderBadRequest(w http.ResponseWriter, message string) {
	RenderJSON(w, http.StatusBadRequest, &ErrorResponse{
		Error:   "error",
		Message: message,
		Code:    "bad_request",
	})
}

// RenderNotFound renders a 404 Not Found error
func RenderNotFound(w http.ResponseWriter, message string) {
	RenderJSON(w, http.StatusNotFound, &ErrorResponse{
		Error:   "error",
		Message: message,
		Code:    "not_found",
	})
}
