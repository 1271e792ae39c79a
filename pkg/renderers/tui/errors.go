package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNotInteractive is returned for form views that cannot receive events.
	ErrNotInteractive = errors.New("tui: form does not accept events")
	// ErrTooManyAttempts stops a prompt loop the user cannot get past.
	ErrTooManyAttempts = errors.New("tui: too many invalid answers")
)
