package http

import (
	"log/slog"
	"net/http"

	"quizgen/internal/domain"

	"github.com/gin-gonic/gin"
)

// envelope is the body shape of every JSON response.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Kind    domain.Kind `json:"kind,omitempty"`
	Data    any         `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

const kindUnauthorized domain.Kind = "unauthorized"

func respondOK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict, domain.KindInvalidState:
		return http.StatusConflict
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindForbidden:
		return http.StatusForbidden
	case kindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// errorResponder renders errors; raw error text is only exposed in
// development.
type errorResponder struct {
	log         *slog.Logger
	development bool
}

func (r errorResponder) fail(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	body := envelope{Kind: kind, Message: domain.PublicMessage(err)}
	if kind == domain.KindInternal {
		r.log.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err)
		body.Message = "internal server error"
		if r.development {
			body.Error = err.Error()
		}
	}
	c.AbortWithStatusJSON(statusFor(kind), body)
}

func (r errorResponder) badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, envelope{Kind: domain.KindInvalidInput, Message: message})
}
