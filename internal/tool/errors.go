package tool

import "errors"

var (
	// ErrEmptyToolName is returned when registering a tool with an empty name.
	ErrEmptyToolName = errors.New("tool name must not be empty")

	// ErrDuplicateTool is returned when registering a tool whose name is
	// already taken.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrToolNotFound is returned when a name matches no registered tool.
	ErrToolNotFound = errors.New("tool not found")

	// ErrConfirmationTimeout is returned when a confirmation request times
	// out; the call is denied by default.
	ErrConfirmationTimeout = errors.New("confirmation request timed out")
)
