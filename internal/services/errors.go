// Package services defines the business logic for opinions.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages and HTTP status codes is performed
// at the handler layer.
package services

import "errors"

var (
	// ErrOpinionNotFound indicates that no opinion has the requested id.
	ErrOpinionNotFound = errors.New("opinion not found")

	// ErrNoOpinions is returned by Random when the table is empty.
	ErrNoOpinions = errors.New("no opinions")

	// ErrDuplicateText is returned when another opinion already has the
	// same text.
	ErrDuplicateText = errors.New("opinion text already exists")

	// ErrNoData is returned when a request carries no fields at all.
	ErrNoData = errors.New("no data in request")

	// ErrMissingFields is returned when title or text is absent or blank.
	ErrMissingFields = errors.New("required fields missing")
)
