package genx

import (
	"errors"
	"fmt"
)

var (
	// ErrNoChoices is returned when a provider responds without candidates.
	ErrNoChoices = errors.New("genx: no choices")

	// ErrTruncated is returned when output hit the token limit before any
	// usable content was produced.
	ErrTruncated = errors.New("genx: generate truncated")
)

// BlockedError reports a refusal or safety block.
type BlockedError struct {
	Usage  Usage
	Reason string
}

// Blocked returns a *BlockedError.
func Blocked(usage Usage, reason string) error {
	return &BlockedError{Usage: usage, Reason: reason}
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("genx: generate blocked: %s", e.Reason)
}
