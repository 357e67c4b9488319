// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to act on a resource owned by someone else, while
// ErrConflict signals that an operation cannot proceed because the
// row's state already moved on (a reservation that is no longer
// pending, a session already closed, a lot with dependent records).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update's state guard matched no
// rows or a delete is blocked by dependent records. Handlers should
// translate this into an HTTP 409 response, except for webhook
// replays where an already-confirmed reservation is answered 200.
var ErrConflict = errors.New("conflict")
