package repository

import "errors"

var (
	// ErrProfileNotFound is returned when a user profile cannot be found.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrDuplicateProfile is returned when attempting to create a profile that already exists.
	ErrDuplicateProfile = errors.New("profile already exists")

	// ErrMovieNotFound is returned when the catalog has no movie with the requested ID.
	ErrMovieNotFound = errors.New("movie not found")

	// ErrObjectNotFound is returned when an object does not exist in storage.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")
)
