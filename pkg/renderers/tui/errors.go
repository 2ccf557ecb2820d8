package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNotSubmitted is returned when the session refused the final submit,
	// which happens when a field that is never prompted still carries errors.
	ErrNotSubmitted = errors.New("tui: form not submitted")
)
