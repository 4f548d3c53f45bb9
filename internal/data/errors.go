package data

import "errors"

var (
	// ErrJobNotFound is returned when no job exists with the given id.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobIDRequired is returned when an operation is attempted with an empty job id.
	ErrJobIDRequired = errors.New("id is required")
	// ErrBucketNotFound is returned when no status bucket row exists yet.
	ErrBucketNotFound = errors.New("status bucket not found")
)
