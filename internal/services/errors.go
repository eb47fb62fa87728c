package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped with the entity name, e.g. "deck: not found"
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a uniqueness violation the caller can act on
	ErrConflict = errors.New("already exists")

	ErrDeckEmpty = errors.New("deck is empty")
)

func notFound(entity string) error {
	return fmt.Errorf("%s: %w", entity, ErrNotFound)
}

// ValidationError is a missing or malformed input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// UpstreamError is a failed call to the external card catalog. Status is 0
// when no response was received.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return "scryfall request failed: " + e.Message
	}
	if e.Message == "" {
		return fmt.Sprintf("scryfall API returned status %d", e.Status)
	}
	return fmt.Sprintf("scryfall API returned status %d: %s", e.Status, e.Message)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
