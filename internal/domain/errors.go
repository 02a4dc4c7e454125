package domain

import "errors"

var (
	// ErrMalformedRow marks a row the CSV layer could not parse. It is
	// row-local: the stream keeps going past it.
	ErrMalformedRow = errors.New("malformed csv row")

	// ErrEncoding is returned when an input stream is not valid UTF-8. It is
	// fatal for the whole import.
	ErrEncoding = errors.New("input is not valid UTF-8")

	// ErrDuplicateEmail is returned by the store when an insert violates the
	// unique email index.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrObjectNotFound is returned when a referenced storage object is absent.
	ErrObjectNotFound = errors.New("object not found")

	// ErrStorageUnavailable wraps object-storage connectivity failures.
	ErrStorageUnavailable = errors.New("object storage unavailable")
)
