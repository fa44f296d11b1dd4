package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when a record does not exist or is
	// not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrInvalidID is returned for identifiers the store cannot parse.
	ErrInvalidID = errors.New("invalid id")
	// ErrAlreadyInPlaylist is returned when a song is added to a playlist twice.
	ErrAlreadyInPlaylist = errors.New("song already in playlist")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
	// ErrFileTooLarge is returned by media stores when an upload exceeds its limit.
	ErrFileTooLarge = errors.New("file too large")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NotFoundError carries the user-facing message for a missing resource.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrNotFound) hold for every NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func invalidID(field, message string) error {
	return &ValidationError{Field: field, Message: message, Err: ErrInvalidID}
}

func notFound(message string) error {
	return &NotFoundError{Message: message}
}

// asNotFound replaces a bare ErrNotFound from a store with a message for the
// caller. Other errors are returned unchanged.
func asNotFound(err error, message string) error {
	if errors.Is(err, ErrNotFound) {
		return notFound(message)
	}
	return err
}
