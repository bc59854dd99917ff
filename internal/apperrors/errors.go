package apperrors

import "errors"

// ErrUnauthorized indicates that no valid identity accompanied the request.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates that the identity lacks the required role, or that a
// resource does not belong to the scope it was requested through.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrConflict indicates an invariant violation, e.g. a second active period for
// a room or a state transition from the wrong status.
var ErrConflict = errors.New("conflict")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrUnavailable indicates that a backing dependency (database, cache) is unreachable.
var ErrUnavailable = errors.New("dependency unavailable")
