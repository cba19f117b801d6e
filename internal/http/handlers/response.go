package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-meal-backend/internal/http/middleware"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// One of the ErrCode constants
	Code    string `json:"code" example:"not_found"`
	Message string `json:"message" example:"meal not found"`
}

// fail aborts with an ErrorResponse. A 5xx is logged exactly once here,
// carrying cause when the caller has one; the body never includes it.
func fail(c *gin.Context, status int, code, msg string, cause error) {
	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("uri", c.Request.URL.Path)
		if cause != nil {
			ev = ev.Err(cause)
		}
		ev.Msg(msg)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail lets the router answer unmatched routes and methods with the same
// envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg, nil) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func notModified(c *gin.Context) {
	c.Status(http.StatusNotModified)
}
