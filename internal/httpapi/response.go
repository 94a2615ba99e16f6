package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase/shared"
)

// Response is the JSON envelope of every endpoint.
type Response struct {
	Data       any                `json:"data,omitempty"`
	Pagination *shared.Pagination `json:"pagination,omitempty"`
	Count      *int               `json:"count,omitempty"`
	Message    string             `json:"message,omitempty"`
	Success    bool               `json:"success"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

func okList[T any](c *gin.Context, items []T, p *shared.Pagination) {
	n := len(items)
	c.JSON(http.StatusOK, Response{Success: true, Data: items, Count: &n, Pagination: p})
}

// statusFor maps an error to its HTTP status code.
func statusFor(err error) int {
	// A membership across projects is a malformed request rather than a state conflict.
	if errors.Is(err, domain.ErrCrossProjectTask) {
		return http.StatusBadRequest
	}
	switch domain.Kind(err) {
	case domain.ErrInvalidInput:
		return http.StatusBadRequest
	case domain.ErrUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrForbidden:
		return http.StatusForbidden
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail aborts the request with the envelope for err. Internal errors are
// logged; their detail is only exposed in development mode.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"error", err,
		)
		if !s.dev {
			msg = "internal server error"
		}
	}
	c.AbortWithStatusJSON(status, Response{Success: false, Message: msg})
}

// badRequest reports a body or query that could not be decoded.
func (s *Server) badRequest(c *gin.Context, err error) {
	s.fail(c, &domain.ValidationError{Field: "request", Reason: err.Error()})
}
