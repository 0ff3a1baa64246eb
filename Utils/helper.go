package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Response is the uniform success envelope sent by every handler.
type Response struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// ErrorResponse is the uniform envelope emitted on the error path.
type ErrorResponse struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// APIError carries an HTTP status alongside a client-safe message. Handlers
// return it up the call chain; Endpoint converts it at the route boundary so
// one place decides the response status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(status int, message string) *APIError {
	return &APIError{Status: status, Message: message}
}

func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, message)
}

func Unauthorized(message string) *APIError {
	return NewAPIError(http.StatusUnauthorized, message)
}

func Forbidden(message string) *APIError {
	return NewAPIError(http.StatusForbidden, message)
}

func NotFound(message string) *APIError {
	return NewAPIError(http.StatusNotFound, message)
}

func Conflict(message string) *APIError {
	return NewAPIError(http.StatusConflict, message)
}

func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, message)
}

// HandlerFunc is an http.HandlerFunc that reports failure instead of writing
// the error response itself.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Endpoint adapts a HandlerFunc to net/http. APIError values keep their
// status and message; anything else becomes a 500 with a generic message and
// the detail only goes to the log.
func Endpoint(log *logrus.Logger, fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			log.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			}).WithError(err).Error("unhandled request error")
			apiErr = Internal("Internal Server Error")
		}

		WriteJSON(w, apiErr.Status, ErrorResponse{
			Status:     "error",
			StatusCode: apiErr.Status,
			Message:    apiErr.Message,
		})
	}
}

// DecodeJSON reads a request body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// WriteJSON sends a JSON payload with proper headers.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("failed to encode JSON response")
	}
}

// WriteSuccess sends the success envelope. Returns nil so handlers can end
// with `return utils.WriteSuccess(...)`.
func WriteSuccess(w http.ResponseWriter, status int, data interface{}, message string) error {
	WriteJSON(w, status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
	})
	return nil
}
