package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/phuslu/log"

	"docparser/internal/domain"
	"docparser/internal/parser"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	var rateLimitErr *parser.RateLimitError
	switch {
	case errors.Is(err, domain.ErrMissingFile):
		return http.StatusBadRequest, "MISSING_FILE", "file field is required"
	case errors.Is(err, domain.ErrUnsupportedBackend):
		return http.StatusBadRequest, "UNSUPPORTED_BACKEND", "unsupported backend; allowed: docling, llmwhisperer"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: pdf, docx, pptx"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrNoContent):
		return http.StatusUnprocessableEntity, "NO_CONTENT", "no content could be extracted from the document"
	case errors.As(err, &rateLimitErr):
		return http.StatusTooManyRequests, "BACKEND_RATE_LIMITED", "extraction backend is rate limited; retry later"
	case errors.Is(err, domain.ErrParseFailed):
		return http.StatusBadGateway, "PARSE_FAILED", "failed to parse document"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	requestID := c.GetString("request_id")
	if status >= 500 {
		log.Error().Err(err).Str("request_id", requestID).Msg("internal error")
	} else {
		log.Warn().Err(err).Str("request_id", requestID).Str("code", code).Msg("request failed")
	}
	var rateLimitErr *parser.RateLimitError
	if errors.As(err, &rateLimitErr) {
		c.Header("Retry-After", strconv.Itoa(int(rateLimitErr.RetryAfter.Seconds())))
	}
	RespondError(c, status, code, msg)
}
