package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// APIError is a structured error response for the serving layer.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates an APIError.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// NewWithDetails creates an APIError with additional details.
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message, Details: details}
}

var (
	ErrInvalidRequest    = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrValidationFailed  = New(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")
	ErrNotFound          = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")
	ErrInternalServer    = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// ErrValidationField creates a validation error naming the offending field.
func ErrValidationField(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed",
		map[string]string{"field": field, "message": message})
}

// NotFoundError creates a not found error for a named resource. Used when
// the store reported absence, which the serving layer distinguishes from
// failure.
func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("%s not found", resource), resource)
}

// Handler converts service-layer errors to API responses with one log line
// per failed request.
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates an error handler.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger.With(slog.String("component", "error_handler"))}
}

// HandleError logs err and writes the matching API response.
func (h *Handler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	apiErr := h.toAPIError(err)
	render.Render(w, r, apiErr)
}

func (h *Handler) toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrTypeValidation:
			return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", appErr.Message, appErr.Context)
		case ErrTypeCorruption:
			return NewWithDetails(http.StatusInternalServerError, "DATA_CORRUPTED", appErr.Message, appErr.Context)
		default:
			return ErrInternalServer
		}
	}
	return ErrInternalServer
}
