// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response envelopes and the small helpers every
// handler uses to write them, so that success and failure bodies keep one
// shape across endpoints.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{"message": "Opinion with the given id not found"}
//
// Example success response:
//
//	HTTP/1.1 201 Created
//	{"opinion": {"id": 1, "title": "T", "text": "U", "source": null, "added_by": null}}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-opinions-backend/internal/domain"
)

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"Opinion with the given id not found"`
}

// OpinionResponse wraps a single opinion.
type OpinionResponse struct {
	Opinion *domain.Opinion `json:"opinion"`
}

// OpinionListResponse wraps every opinion, ordered by id.
type OpinionListResponse struct {
	Opinions []domain.Opinion `json:"opinions"`
}

// fail attaches err to the context and aborts the chain. ErrorHandler writes
// the body.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Fail is the exported variant of fail, used by the router fallbacks.
func Fail(c *gin.Context, status int, msg string) { fail(c, NewAPIError(msg, status)) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
