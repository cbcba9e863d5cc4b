package agent

import "errors"

var (
	// ErrNoGenerator indicates a Config without a Generator.
	ErrNoGenerator = errors.New("agent: generator required")

	// ErrNoActions indicates a Config without an action registry.
	ErrNoActions = errors.New("agent: actions required")

	// ErrNoLanguage indicates a Config without a Language.
	ErrNoLanguage = errors.New("agent: language required")
)
