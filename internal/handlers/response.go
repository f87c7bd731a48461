package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps an error to the HTTP status it is reported with
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Unexpected errors are logged and
// hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		message = "Internal Server Error"
	}
	writeJSON(w, status, models.ErrorResponse{Error: message, Code: status})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: message, Code: http.StatusBadRequest})
}

// pathID parses a positive integer URL parameter
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewInvalidInput("Invalid %s", name)
	}
	return id, nil
}

// decodeJSON reads a JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return models.NewInvalidInput("Invalid request body: %s", err.Error())
	}
	return nil
}

// pageQuery reads pageNumber, pageSize, sortBy and sortOrder
func pageQuery(r *http.Request) (services.PageQuery, error) {
	q := services.PageQuery{
		PageNumber: services.DefaultPageNumber,
		PageSize:   services.DefaultPageSize,
		SortBy:     r.URL.Query().Get("sortBy"),
		SortOrder:  r.URL.Query().Get("sortOrder"),
	}

	for name, dst := range map[string]*int{"pageNumber": &q.PageNumber, "pageSize": &q.PageSize} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return q, models.NewInvalidInput("Invalid %s", name)
		}
		*dst = v
	}
	return q, nil
}

// currentUser returns the session's user id, answering 401 when absent
func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required", Code: http.StatusUnauthorized})
	}
	return userID, ok
}
