package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Kyushi/pemoi/internal/apperror"
	"github.com/Kyushi/pemoi/internal/repository"
)

const defaultPageSize = 50

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps service errors to status codes. Anything that is not an
// AppError is logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "internal",
			Message: "An error occurred. Please try again.",
		})
		return
	}

	status, kind := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, apperror.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	}

	writeJSON(w, status, errorResponse{Error: kind, Message: appErr.Message, Field: appErr.Field})
}

func validationError(field, message string) error {
	return apperror.ValidationFailed(field, message)
}

func badRequest(w http.ResponseWriter, r *http.Request, field, message string) {
	writeError(w, r, validationError(field, message))
}

func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		return apperror.ValidationFailed("", "Invalid request body")
	}
	return nil
}

// pathID parses the {id} path value. A malformed id is reported as not found.
func pathID(r *http.Request, resource string) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.NotFound(resource, -1)
	}
	return id, nil
}

func pageFromQuery(r *http.Request) (repository.Page, error) {
	page := repository.Page{Limit: defaultPageSize}

	for name, target := range map[string]*uint64{"limit": &page.Limit, "offset": &page.Offset} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return page, apperror.ValidationFailed(name, fmt.Sprintf("%s must be a non-negative number", name))
		}
		*target = n
	}
	return page, nil
}
