// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow handlers to distinguish
// between failure scenarios: ErrForbidden indicates that the acting user
// does not own the resource, ErrConflict signals that an operation cannot
// proceed because of dependent or conflicting state (a branch that still
// has spaces, a space number already taken, an overlapping booking).
// Plain "row not found" conditions are reported as sql.ErrNoRows.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by someone else.  Handlers translate this into 401.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot be performed because
// of conflicting state, such as deleting a branch that still has spaces
// or booking a window that overlaps an existing reservation.  Handlers
// translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by user creation when the email address is
// already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateNumber is returned when a space number is already taken
// within the same branch.
var ErrDuplicateNumber = errors.New("space number already exists in branch")
