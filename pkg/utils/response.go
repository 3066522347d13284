package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint answers with: exactly one of
// Data or Error is set, Meta only on paginated lists.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *AppError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta carries pagination counters for list endpoints.
type Meta struct {
	Page       int   `json:"page,omitempty"`
	PerPage    int   `json:"per_page,omitempty"`
	Total      int64 `json:"total,omitempty"`
	TotalPages int   `json:"total_pages,omitempty"`
}

func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func SendSuccessWithMeta(c *gin.Context, data interface{}, meta *Meta) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Meta: meta})
}

func SendError(c *gin.Context, statusCode int, err *AppError) {
	c.JSON(statusCode, Response{Success: false, Error: err})
}

func fail(c *gin.Context, status int, code, message string, details ...string) {
	SendError(c, status, NewAppError(code, message, details...))
}

func SendValidationError(c *gin.Context, message, details string) {
	fail(c, http.StatusBadRequest, ErrCodeValidation, message, details)
}

func SendNotFound(c *gin.Context, message string) {
	fail(c, http.StatusNotFound, ErrCodeNotFound, message)
}

func SendUnauthorized(c *gin.Context, message string) {
	fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func SendForbidden(c *gin.Context, message string) {
	fail(c, http.StatusForbidden, ErrCodeForbidden, message)
}

func SendInternalError(c *gin.Context, message string) {
	fail(c, http.StatusInternalServerError, ErrCodeInternal, message)
}

// SendUnprocessable reports a request that parsed fine but cannot be
// satisfied, such as a candidate pool that cannot fill the quota.
func SendUnprocessable(c *gin.Context, err *AppError) {
	SendError(c, http.StatusUnprocessableEntity, err)
}

// SendUnavailable reports a temporarily failing upstream, typically a
// tripped circuit breaker.
func SendUnavailable(c *gin.Context, message string) {
	fail(c, http.StatusServiceUnavailable, ErrCodeUpstream, message)
}
