package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/energy"
	"github.com/wardenhq/warden/internal/safety"
)

// DecisionRecorder receives one admission decision per call, for metrics.
type DecisionRecorder interface {
	RecordDecision(tool, decision string)
}

// Admission decisions reported to the DecisionRecorder.
const (
	DecisionExecuted     = "executed"
	DecisionFailed       = "failed"
	DecisionUnknownTool  = "unknown_tool"
	DecisionSafetyBlock  = "safety_block"
	DecisionConfirmDeny  = "confirmation_denied"
	DecisionEnergyDenied = "energy_denied"
)

// commandParams are parameter names whose string values are classified by
// the command filter before a shell-executing tool runs.
var commandParams = map[string]struct{}{
	"command": {},
	"cmd":     {},
	"script":  {},
}

// pathParams are parameter names whose string values go through the path
// guard and sensitive-file check.
var pathParams = map[string]struct{}{
	"path":        {},
	"file":        {},
	"filepath":    {},
	"dir":         {},
	"directory":   {},
	"source":      {},
	"destination": {},
	"target":      {},
}

// ExecutorConfig wires the executor's collaborators. Registry is required;
// everything else degrades gracefully when absent.
type ExecutorConfig struct {
	Registry *Registry
	Safety   *safety.Engine
	Ledger   *energy.Ledger
	Audit    *audit.Logger

	// Requester handles confirmation prompts. With confirmation enabled
	// and no requester registered, confirmable tools are blocked.
	Requester ApprovalRequester

	// Trusted, when active, auto-approves confirmation prompts.
	Trusted *TrustedWindow

	// ConfirmTimeout bounds a confirmation wait; expiry denies.
	// Defaults to 5 minutes.
	ConfirmTimeout time.Duration

	// Mode is the execution context. Defaults to ModeAutonomous, the
	// fully governed context.
	Mode Mode

	Env     ExecutionEnv
	Metrics DecisionRecorder
	Logger  *slog.Logger
}

// Executor admits and runs tool calls: resolution, safety gate, human
// confirmation, energy gate, execution, audit. Safe for concurrent use.
type Executor struct {
	registry       *Registry
	safetyEng      *safety.Engine
	ledger         *energy.Ledger
	auditLog       *audit.Logger
	requester      ApprovalRequester
	trusted        *TrustedWindow
	confirmTimeout time.Duration
	mode           Mode
	env            ExecutionEnv
	metrics        DecisionRecorder
	logger         *slog.Logger
}

// NewExecutor creates an executor from the given configuration.
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 5 * time.Minute
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeAutonomous
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Executor{
		registry:       cfg.Registry,
		safetyEng:      cfg.Safety,
		ledger:         cfg.Ledger,
		auditLog:       cfg.Audit,
		requester:      cfg.Requester,
		trusted:        cfg.Trusted,
		confirmTimeout: cfg.ConfirmTimeout,
		mode:           cfg.Mode,
		env:            cfg.Env,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
	}
}

// Execute admits and runs a single call, returning exactly one Result.
// It never returns an error and never panics: tool-internal failures are
// converted to a failed Result at this boundary.
func (e *Executor) Execute(ctx context.Context, call Call) Result {
	// Resolve the requested name against a registry snapshot.
	name, ok := ResolveName(call.Name, e.registry.Names())
	if !ok {
		e.record(call.Name, call.Arguments, true, "unknown tool", nil)
		e.count(call.Name, DecisionUnknownTool)
		return fail(fmt.Sprintf("unknown tool: %s", call.Name))
	}

	t, err := e.registry.Get(name)
	if err != nil {
		// Unregistered between snapshot and lookup; treat as unknown.
		e.record(name, call.Arguments, true, "unknown tool", nil)
		e.count(name, DecisionUnknownTool)
		return fail(fmt.Sprintf("unknown tool: %s", call.Name))
	}
	def := t.Definition()
	args := RemapArgs(call.Arguments, def)

	// Safety gate. A dangerous command is refused outright, never merely
	// asked about, so this runs before confirmation.
	if d := e.checkSafety(args); !d.Allowed {
		e.record(name, args, true, d.Reason, nil)
		e.count(name, DecisionSafetyBlock)
		return fail(fmt.Sprintf("blocked: %s", d.Reason))
	}

	// Confirmation flow.
	if e.safetyEng != nil && e.safetyEng.RequiresConfirmation(name) {
		if res, confirmed := e.confirm(ctx, name, def, args); !confirmed {
			return res
		}
	}

	// Energy gate; interactive calls are ungoverned.
	if e.mode == ModeAutonomous && e.ledger != nil {
		if r := e.ledger.Spend(name); !r.Allowed {
			e.record(name, args, true, r.Reason, nil)
			e.count(name, DecisionEnergyDenied)
			return fail(r.Reason)
		}
	}

	res := e.runTool(ctx, t, name, args)
	e.record(name, args, false, "", &res.Success)
	if res.Success {
		e.count(name, DecisionExecuted)
	} else {
		e.count(name, DecisionFailed)
	}
	return res
}

// ExecuteAll admits a batch. For two or more calls in the autonomous
// context the batch must fit the energy budget in aggregate before any
// call runs; an oversized batch is rejected atomically with nothing spent.
// Admitted calls then run concurrently, results in input order. A
// single-call batch falls through to the ordinary per-call check.
func (e *Executor) ExecuteAll(ctx context.Context, calls []Call) []Result {
	if len(calls) == 0 {
		return nil
	}

	if len(calls) >= 2 && e.mode == ModeAutonomous && e.ledger != nil && e.ledger.Enabled() {
		names := e.registry.Names()
		total := 0.0
		for _, call := range calls {
			name := call.Name
			if resolved, ok := ResolveName(call.Name, names); ok {
				name = resolved
			}
			total += e.ledger.Cost(name)
		}

		// This read happens before any individual spend in the batch.
		if available := e.ledger.Available(); total > available {
			reason := fmt.Sprintf("energy budget exceeded for batch: need %.1f, have %.1f", total, available)
			results := make([]Result, len(calls))
			for i, call := range calls {
				e.record(call.Name, call.Arguments, true, reason, nil)
				e.count(call.Name, DecisionEnergyDenied)
				results[i] = fail(reason)
			}
			return results
		}
	}

	results := make([]Result, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c Call) {
			defer wg.Done()
			results[idx] = e.Execute(ctx, c)
		}(i, call)
	}
	wg.Wait()
	return results
}

// checkSafety classifies command- and path-bearing arguments. Pure
// function over (config, args); no shared mutable state. The engine
// itself handles the disabled cases, including the hard-blocked command
// set that no switch can turn off.
func (e *Executor) checkSafety(args map[string]any) safety.Decision {
	if e.safetyEng == nil {
		return safety.Decision{Allowed: true}
	}

	for key, value := range args {
		s, ok := value.(string)
		if !ok {
			continue
		}
		norm := normalizeName(key)
		if _, isCmd := commandParams[norm]; isCmd {
			if d := e.safetyEng.CheckCommand(s); !d.Allowed {
				return d
			}
		}
		if _, isPath := pathParams[norm]; isPath {
			if d := e.safetyEng.CheckPath(s, e.env.Workspace); !d.Allowed {
				return d
			}
		}
	}
	return safety.Decision{Allowed: true}
}

// confirm runs the human-confirmation flow. confirmed=false comes with the
// Result to return. The energy ledger is never held across this wait.
func (e *Executor) confirm(ctx context.Context, name string, def Definition, args map[string]any) (Result, bool) {
	if e.trusted != nil && e.trusted.Active() {
		return Result{}, true
	}

	if e.requester == nil {
		reason := "confirmation required but no confirmer is registered"
		e.record(name, args, true, reason, nil)
		e.count(name, DecisionConfirmDeny)
		res := fail(fmt.Sprintf("blocked: %s", reason))
		res.NeedsConfirmation = true
		return res, false
	}

	req := ApprovalRequest{
		ID:          fmt.Sprintf("confirm-%s-%d", name, time.Now().UnixNano()),
		ToolName:    name,
		Description: def.Description,
		Arguments:   args,
	}
	resp, err := requestConfirmation(ctx, e.requester, req, e.confirmTimeout)
	if err != nil {
		e.logger.Warn("confirmation failed", "tool", name, "error", err)
	}
	if !resp.Approved {
		reason := "denied by user"
		if resp.Reason != "" {
			reason = "denied by user: " + resp.Reason
		}
		e.record(name, args, true, reason, nil)
		e.count(name, DecisionConfirmDeny)
		res := fail(reason)
		res.NeedsConfirmation = true
		return res, false
	}
	return Result{}, true
}

// runTool executes the tool with panic recovery at the boundary.
func (e *Executor) runTool(ctx context.Context, t Tool, name string, args map[string]any) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool panicked", "tool", name, "panic", r)
			res = fail(fmt.Sprintf("tool %s panicked: %v", name, r))
		}
	}()

	out, err := t.Execute(ctx, args, e.env)
	if err != nil {
		return fail(fmt.Sprintf("tool %s failed: %s", name, err.Error()))
	}
	return out
}

// record appends one audit entry; a nil audit logger is a no-op.
func (e *Executor) record(toolName string, args map[string]any, blocked bool, reason string, success *bool) {
	if e.auditLog == nil {
		return
	}
	e.auditLog.Record(audit.Entry{
		Tool:    strings.TrimSpace(toolName),
		Args:    args,
		Blocked: blocked,
		Reason:  reason,
		Success: success,
	})
}

func (e *Executor) count(toolName, decision string) {
	if e.metrics != nil {
		e.metrics.RecordDecision(toolName, decision)
	}
}
