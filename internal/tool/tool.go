// Package tool defines the tool contract and the governed executor for
// warden. Tools are the primary security boundary: every action the agent
// takes goes through a registered tool, and every invocation is admitted
// through the safety gate, the energy gate, and the confirmation flow
// before the tool runs.
package tool

import "context"

// Param describes one declared tool parameter.
type Param struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// Definition is a tool's immutable public contract.
type Definition struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  map[string]Param `json:"parameters"`
}

// ExecutionEnv provides the runtime environment for tool execution.
// It intentionally does not expose secrets or os.Environ.
type ExecutionEnv struct {
	// Workspace is the working directory for the current session.
	Workspace string

	// DataDir is the persistent data directory for the tool.
	DataDir string
}

// Tool is the interface all warden tools implement. The executor never
// inspects a tool beyond this contract.
type Tool interface {
	Definition() Definition

	// Execute runs the tool. Implementations return an error for internal
	// failures; the executor converts it to a failed Result.
	Execute(ctx context.Context, args map[string]any, env ExecutionEnv) (Result, error)
}

// Call is one requested tool invocation. Name and argument keys may be
// noisy (misspelled, miscased); the executor resolves them against the
// registry before anything runs.
type Call struct {
	// ID is the caller-supplied correlation token, unique within a batch.
	ID string

	// Name is the requested tool name.
	Name string

	// Arguments maps argument keys to values.
	Arguments map[string]any
}

// Result is the single outcome of a Call. The executor always produces
// exactly one Result per call and never returns an error alongside it:
// blocked, denied, exhausted, and failed calls all surface as
// Success=false with the reason in Output.
type Result struct {
	// Success reports whether the tool ran and succeeded.
	Success bool `json:"success"`

	// Output is the human-readable result or failure reason.
	Output string `json:"output"`

	// IsImage marks Output as a base64-encoded image payload.
	IsImage bool `json:"is_image,omitempty"`

	// NeedsConfirmation distinguishes a confirmation denial (or a missing
	// confirmer) from a hard safety block.
	NeedsConfirmation bool `json:"needs_confirmation,omitempty"`
}

// fail builds a failed Result.
func fail(output string) Result {
	return Result{Success: false, Output: output}
}

// Mode is the execution context a call runs under. Energy governance
// exists to bound autonomous action; interactive, human-initiated calls
// bypass it entirely.
type Mode string

// Execution contexts.
const (
	ModeInteractive Mode = "interactive"
	ModeAutonomous  Mode = "autonomous"
)
