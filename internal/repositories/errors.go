package repositories

import "errors"

// Sentinel errors shared by every repository. Callers match them with
// errors.Is; the HTTP layer maps them to 404 and 409.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)
