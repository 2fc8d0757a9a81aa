package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C or the quit action).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoFileOpener is reported when a file field is answered but the
	// renderer cannot turn paths into uploads.
	ErrNoFileOpener = errors.New("tui: file opener is not configured")
)
