// Package handlers defines the HTTP-layer error type used across all API
// endpoints.
//
// Handlers never write error bodies themselves. They attach an *APIError to
// the Gin context (see fail) and ErrorHandler renders it once, after the
// chain, as:
//
//	{"message": "Opinion with the given id not found"}
//
// Errors that are not *APIError are rendered as a 500 with a generic message
// and logged with the request-scoped logger.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-opinions-backend/internal/http/middleware"
	"github.com/tbourn/go-opinions-backend/internal/services"
)

// Client-facing messages.
const (
	MsgNoData           = "No data in request"
	MsgMissingFields    = "Required fields missing"
	MsgDuplicateText    = "This opinion already exists in the database"
	MsgOpinionNotFound  = "Opinion with the given id not found"
	MsgNoOpinions       = "No opinions in the database"
	MsgBodyTooLarge     = "request body too large"
	MsgRouteNotFound    = "route not found"
	MsgMethodNotAllowed = "method not allowed"
	MsgInternal         = "internal server error"
)

// APIError is an error that carries its client message and HTTP status.
type APIError struct {
	Message string
	Status  int
}

func (e *APIError) Error() string { return e.Message }

// NewAPIError builds an APIError. Status defaults to 400 Bad Request.
func NewAPIError(msg string, status ...int) *APIError {
	st := http.StatusBadRequest
	if len(status) > 0 && status[0] != 0 {
		st = status[0]
	}
	return &APIError{Message: msg, Status: st}
}

// fromService maps service sentinels onto APIErrors. Unknown errors are
// returned unchanged and end up as 500s.
func fromService(err error) error {
	switch {
	case errors.Is(err, services.ErrNoData):
		return NewAPIError(MsgNoData)
	case errors.Is(err, services.ErrMissingFields):
		return NewAPIError(MsgMissingFields)
	case errors.Is(err, services.ErrDuplicateText):
		return NewAPIError(MsgDuplicateText)
	case errors.Is(err, services.ErrOpinionNotFound):
		return NewAPIError(MsgOpinionNotFound, http.StatusNotFound)
	case errors.Is(err, services.ErrNoOpinions):
		return NewAPIError(MsgNoOpinions, http.StatusNotFound)
	default:
		return err
	}
}

// ErrorHandler renders the last error attached to the context. It must be
// registered before the route handlers so it runs after them.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var apiErr *APIError
		if errors.As(last.Err, &apiErr) {
			if apiErr.Status >= http.StatusInternalServerError {
				logServerError(c, apiErr.Status, last.Err)
			}
			c.JSON(apiErr.Status, ErrorResponse{Message: apiErr.Message})
			return
		}

		logServerError(c, http.StatusInternalServerError, last.Err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: MsgInternal})
	}
}

func logServerError(c *gin.Context, status int, err error) {
	middleware.LoggerFrom(c).Error().
		Err(err).
		Int("status", status).
		Msg("api error")
}
