package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/securebank-ledger/internal/api_gateway/middleware"
	"github.com/securebank-ledger/internal/domain/shared"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// MetaInfo represents metadata in a response
type MetaInfo struct {
	TotalItems int `json:"total_items"`
}

// NewResponse creates a new response with data
func NewResponse(data interface{}) *Response {
	return &Response{
		Data: data,
	}
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message string) *Response {
	return &Response{
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// NewListResponse creates a response carrying a full collection and its size
func NewListResponse(data interface{}, totalItems int) *Response {
	return &Response{
		Data: data,
		Meta: &MetaInfo{TotalItems: totalItems},
	}
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	response := NewResponse(data)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	response := NewErrorResponse(code, message)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithList sends a JSON response with a collection
func RespondWithList(c *gin.Context, data interface{}, totalItems int) {
	response := NewListResponse(data, totalItems)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(http.StatusOK, response)
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondAccepted sends a 202 Accepted response with data.
func RespondAccepted(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusAccepted, data)
}

// RespondNoContent sends a 204 No Content response
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondNotFound sends a 404 Not Found response with an error
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondServiceUnavailable sends a 503 response for features that are not wired in this deployment
func RespondServiceUnavailable(c *gin.Context, message string) {
	RespondWithError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message)
}

// statusForKind maps the error taxonomy onto HTTP statuses
func statusForKind(kind shared.ErrorKind) int {
	switch kind {
	case shared.KindInvalidArgument, shared.KindUnsupportedFormat, shared.KindConstraintViolation:
		return http.StatusBadRequest
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindSyntaxError, shared.KindUndefinedVariable, shared.KindDomainError:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// errorInfo builds the client-facing description of err. Server-side failures
// never expose their message.
func errorInfo(err error) *ErrorInfo {
	kind := shared.KindOf(err)
	if statusForKind(kind) == http.StatusInternalServerError {
		return &ErrorInfo{Code: "INTERNAL_SERVER_ERROR", Message: "An internal server error occurred"}
	}
	info := &ErrorInfo{Code: string(kind), Message: err.Error()}
	var invalid shared.ErrInvalidArgument
	if errors.As(err, &invalid) {
		info.Field = invalid.Field
	}
	return info
}

// RespondWithDomainError maps err to a status and a stable error code.
// Server-side failures are logged here with the request's correlation id.
func RespondWithDomainError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusForKind(shared.KindOf(err))
	if status == http.StatusInternalServerError {
		logger.Error("Request failed",
			"path", c.FullPath(),
			"error", err,
			"correlation_id", middleware.GetCorrelationID(c),
		)
	}
	response := &Response{Error: errorInfo(err), CorrelationID: middleware.GetCorrelationID(c)}
	c.JSON(status, response)
}
