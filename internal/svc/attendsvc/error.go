package attendsvc

import "errors"

var (
	// ErrEmptyBatch is the only fatal error SendBatch returns: the input was
	// not a non-empty record sequence.
	ErrEmptyBatch = errors.New("batch requires a non-empty record sequence")

	// Per-record validation failures. Recorded in the batch result, never
	// fatal to the batch.
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidStudentID = errors.New("invalid student id")
	ErrInvalidEmail     = errors.New("invalid parent email")
)
