// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow handlers to distinguish
// failure scenarios without inspecting database errors.  Token-state
// sentinels are deliberately coarse: a spent token, an expired token and
// an unknown token all surface as ErrTokenSpent so callers cannot build an
// oracle on consumption state.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrTokenSpent is returned when a token cannot be consumed because it is
// unknown, already consumed or expired.  The three cases are intentionally
// indistinguishable.
var ErrTokenSpent = errors.New("token spent or expired")

// ErrEmailExists is returned when creating a user with a duplicate email.
var ErrEmailExists = errors.New("email already exists")
