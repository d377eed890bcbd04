package store

import "errors"

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would violate a uniqueness rule or
// when a conditional update lost a race
var ErrConflict = errors.New("conflict")
