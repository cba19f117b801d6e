// Package services defines the business logic for meal retrieval.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into HTTP status codes is performed at the handler layer:
// ErrBadPath maps to 400, ErrMealNotFound to 404, and everything else
// (ErrDuplicateMealID, ErrStore) to 500.
package services

import "errors"

// Meal lookup errors.
var (
	// ErrBadPath is returned when a path fragment is neither empty nor "/"
	// followed only by decimal digits.
	ErrBadPath = errors.New("malformed meal path")

	// ErrMealNotFound indicates that no valid meal exists for the requested id.
	// Corrupt and sentinel records are reported the same way.
	ErrMealNotFound = errors.New("meal not found")

	// ErrDuplicateMealID is returned when more than one stored meal carries
	// the requested id.
	ErrDuplicateMealID = errors.New("duplicate meal id")

	// ErrStore wraps failures of the underlying datastore.
	ErrStore = errors.New("datastore failure")
)
