package tool

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/energy"
	"github.com/wardenhq/warden/internal/safety"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestLedger builds an enabled ledger over a seeded store with a fixed
// clock so regeneration is deterministic.
func newTestLedger(t *testing.T, maxEnergy float64) *energy.Ledger {
	t.Helper()

	at := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	store := energy.NewMemStore()
	err := store.Save(energy.State{
		Current:      maxEnergy,
		Max:          maxEnergy,
		RegenPerHour: 2,
		LastUpdate:   at,
	})
	if err != nil {
		t.Fatal(err)
	}

	l, err := energy.NewLedger(energy.Config{
		Enabled:      true,
		MaxEnergy:    maxEnergy,
		RegenPerHour: 2,
	}, store, discardLogger())
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	l.SetNow(func() time.Time { return at })
	return l
}

func newTestSafety(t *testing.T, cfg safety.Config) *safety.Engine {
	t.Helper()
	e, err := safety.NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

// blockModeSafety is the default test safety config: master switch on,
// command filter in block mode, sensitive files on, confirmation off.
func blockModeSafety(t *testing.T) *safety.Engine {
	return newTestSafety(t, safety.Config{
		Enabled: true,
		CommandFilter: safety.CommandFilterConfig{
			Enabled: true,
			Mode:    safety.ModeBlock,
		},
		SensitiveFiles: safety.SensitiveFilesConfig{Enabled: true},
	})
}

func newTestRegistry(t *testing.T, tools ...*stubTool) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			t.Fatalf("Register(%s): %v", tool.def.Name, err)
		}
	}
	return r
}

func TestExecutor_HardBlockedCommandLeavesEnergyUntouched(t *testing.T) {
	t.Parallel()

	shell := newStubTool("execute_command", "command")
	ledger := newTestLedger(t, 20)
	auditLog := audit.NewLogger(audit.LoggerConfig{Log: discardLogger()})
	defer auditLog.Close()

	exec := NewExecutor(ExecutorConfig{
		Registry: newTestRegistry(t, shell),
		Safety:   blockModeSafety(t),
		Ledger:   ledger,
		Audit:    auditLog,
		Logger:   discardLogger(),
	})

	res := exec.Execute(context.Background(), Call{
		ID:        "c1",
		Name:      "execute_command",
		Arguments: map[string]any{"command": "rm -rf /"},
	})

	if res.Success {
		t.Fatal("rm -rf / executed")
	}
	if !strings.Contains(res.Output, "hard-blocked") {
		t.Fatalf("output %q does not reference the hard-blocked pattern", res.Output)
	}
	if res.NeedsConfirmation {
		t.Error("safety block reported as confirmation denial")
	}
	if got := ledger.Available(); got != 20 {
		t.Fatalf("energy = %v after block, want 20 (unchanged)", got)
	}

	recent := auditLog.Recent(1)
	if len(recent) != 1 || !recent[0].Blocked || recent[0].Tool != "execute_command" {
		t.Fatalf("audit = %+v", recent)
	}
}

func TestExecutor_EnergyExhaustionSequence(t *testing.T) {
	t.Parallel()

	shell := newStubTool("execute_command", "command")
	agent := newStubTool("code_agent", "task")
	ledger := newTestLedger(t, 20)

	exec := NewExecutor(ExecutorConfig{
		Registry: newTestRegistry(t, shell, agent),
		Safety:   blockModeSafety(t),
		Ledger:   ledger,
		Logger:   discardLogger(),
	})

	// Four shell calls at 4.0 each drain to 4.0.
	for i := range 4 {
		res := exec.Execute(context.Background(), Call{
			Name:      "execute_command",
			Arguments: map[string]any{"command": "echo x"},
		})
		if !res.Success {
			t.Fatalf("call %d failed: %s", i, res.Output)
		}
	}

	res := exec.Execute(context.Background(), Call{Name: "code_agent", Arguments: map[string]any{"task": "refactor"}})
	if res.Success {
		t.Fatal("fifth call succeeded with 4.0 energy")
	}
	if res.Output != "Insufficient energy: need 5.0, have 4.0" {
		t.Fatalf("output = %q", res.Output)
	}
}

func TestExecutor_BatchRejectedAtomically(t *testing.T) {
	t.Parallel()

	shell := newStubTool("execute_command", "command")
	ledger := newTestLedger(t, 10) // three shell calls need 12.0

	exec := NewExecutor(ExecutorConfig{
		Registry: newTestRegistry(t, shell),
		Safety:   blockModeSafety(t),
		Ledger:   ledger,
		Logger:   discardLogger(),
	})

	batch := []Call{
		{ID: "a", Name: "execute_command", Arguments: map[string]any{"command": "echo 1"}},
		{ID: "b", Name: "execute_command", Arguments: map[string]any{"command": "echo 2"}},
		{ID: "c", Name: "execute_command", Arguments: map[string]any{"command": "echo 3"}},
	}
	results := exec.ExecuteAll(context.Background(), batch)

	if len(results) != len(batch) {
		t.Fatalf("got %d results", len(results))
	}
	for i, res := range results {
		if res.Success {
			t.Errorf("call %d succeeded in an oversized batch", i)
		}
		if !strings.Contains(res.Output, "energy budget exceeded for batch") {
			t.Errorf("call %d output = %q", i, res.Output)
		}
	}
	if n := shell.Calls(); n != 0 {
		t.Errorf("underlying tool ran %d times, want 0", n)
	}
	if got := ledger.Available(); got != 10 {
		t.Errorf("energy = %v after atomic rejection, want 10", got)
	}
}

func TestExecutor_BatchWithinBudgetRunsAll(t *testing.T) {
	t.Parallel()

	shell := newStubTool("execute_command", "command")
	ledger := newTestLedger(t, 20)

	exec := NewExecutor(ExecutorConfig{
		Registry: newTestRegistry(t, shell),
		Safety:   blockModeSafety(t),
		Ledger:   ledger,
		Logger:   discardLogger(),
	})

	batch := []Call{
		{ID: "a", Name: "execute_command", Arguments: map[string]any{"command": "echo 1"}},
		{ID: "b", Name: "execute_command", Arguments: map[string]any{"command": "echo 2"}},
	}
	results := exec.ExecuteAll(context.Background(), batch)

	for i, res := range results {
		if !res.Success {
			t.Errorf("call %d failed: %s", i, res.Output)
		}
	}
	if n := shell.Calls(); n != 2 {
		t.Errorf("tool ran %d times, want 2", n)
	}
	if got := ledger.Available(); got != 12 {
		t.Errorf("energy = %v, want 12 (two spends of 4.0)", got)
	}
}

func TestExecutor_SingleCallBatchSkipsAggregate(t *testing.T) {
	t.Parallel()

	agent := newStubTool("code_agent", "task")
	ledger := newTestLedger(t, 4) // code_agent costs 5.0

	exec := NewExecutor(ExecutorConfig{
		Registry: newTestRegistry(t, agent),
		Ledger:   ledger,
		Logger:   discardLogger(),
	})

	results := exec.ExecuteAll(context.Background(), []Call{
		{ID: "only", Name: "code_agent", Arguments: map[string]any{"task": "x"}},
	})

	if len(results) != 1 || results[0].Success {
		t.Fatalf("results = %+v", results)
	}
	// The per-call check fired, not the batch pre-check.
	if !strings.HasPrefix(results[0].Output, "Insufficient energy") {
		t.Fatalf("output = %q", results[0].Output)
	}
}

func TestExecutor_InteractiveModeBypassesEnergy(t *testing.T) {
	t.Parallel()

	agent := newStubTool("code_agent", "task")
	ledger := newTestLedger(t, 1) // far below code_agent's 5.0

	exec := NewExecutor(ExecutorConfig{
		Registry: newTestRegistry(t, agent),
		Ledger:   ledger,
		Mode:     ModeInteractive,
		Logger:   discardLogger(),
	})

	batch := []Call{
		{ID: "a", Name: "code_agent", Arguments: map[string]any{"task": "x"}},
		{ID: "b", Name: "code_agent", Arguments: map[string]any{"task": "y"}},
	}
	for i, res := range exec.ExecuteAll(context.Background(), batch) {
		if !res.Success {
			t.Errorf("interactive call %d failed: %s", i, res.Output)
		}
	}
	if got := ledger.Available(); got != 1 {
		t.Errorf("interactive calls spent energy: available = %v, want 1", got)
	}
}

func TestExecutor_FuzzyNameAndArgResolution(t *testing.T) {
	t.Parallel()

	reader := newStubTool("read_file", "path")
	exec := NewExecutor(ExecutorConfig{
		Registry: newTestRegistry(t, reader),
		Logger:   discardLogger(),
	})

	res := exec.Execute(context.Background(), Call{
		Name:      "Read-File",
		Arguments: map[string]any{"Path": "notes.txt"},
	})
	if !res.Success {
		t.Fatalf("fuzzy call failed: %s", res.Output)
	}
	if args := reader.LastArg(); args["path"] != "notes.txt" {
		t.Fatalf("tool saw args %v, want remapped path", args)
	}
}

func TestExecutor_UnknownToolNeverGuesses(t *testing.T) {
	t.Parallel()

	auditLog := audit.NewLogger(audit.LoggerConfig{Log: discardLogger()})
	defer auditLog.Close()

	exec := NewExecutor(ExecutorConfig{
		Registry: newTestRegistry(t, newStubTool("read_file", "path"), newStubTool("raw_file", "path")),
		Audit:    auditLog,
		Logger:   discardLogger(),
	})

	// One edit from two candidates: must refuse, not pick one.
	res := exec.Execute(context.Background(), Call{Name: "rad_file"})
	if res.Success {
		t.Fatal("ambiguous name executed")
	}
	if !strings.Contains(res.Output, "unknown tool") {
		t.Fatalf("output = %q", res.Output)
	}

	recent := auditLog.Recent(1)
	if len(recent) != 1 || !recent[0].Blocked {
		t.Fatalf("no audit entry for unresolved call: %+v", recent)
	}
}

func TestExecutor_PathGuardBlocksEscapes(t *testing.T) {
	t.Parallel()

	writer := newStubTool("write_file", "path", "content")
	engine := newTestSafety(t, safety.Config{
		Enabled: true,
		PathSandbox: safety.PathSandboxConfig{
			Enabled:      true,
			AllowedPaths: []string{"/home/u/project"},
		},
		SensitiveFiles: safety.SensitiveFilesConfig{Enabled: true},
	})

	exec := NewExecutor(ExecutorConfig{
		Registry: newTestRegistry(t, writer),
		Safety:   engine,
		Env:      ExecutionEnv{Workspace: "/home/u/project"},
		Logger:   discardLogger(),
	})

	res := exec.Execute(context.Background(), Call{
		Name:      "write_file",
		Arguments: map[string]any{"path": "/etc/crontab", "content": "x"},
	})
	if res.Success {
		t.Fatal("out-of-sandbox write executed")
	}
	if !strings.Contains(res.Output, "outside the sandbox") {
		t.Fatalf("output = %q", res.Output)
	}

	// Sensitive file inside the sandbox is still refused.
	res = exec.Execute(context.Background(), Call{
		Name:      "write_file",
		Arguments: map[string]any{"path": ".env", "content": "x"},
	})
	if res.Success {
		t.Fatal("sensitive write executed")
	}

	res = exec.Execute(context.Background(), Call{
		Name:      "write_file",
		Arguments: map[string]any{"path": "src/main.go", "content": "x"},
	})
	if !res.Success {
		t.Fatalf("in-sandbox write failed: %s", res.Output)
	}
}

func confirmingSafety(t *testing.T, tools ...string) *safety.Engine {
	t.Helper()
	return newTestSafety(t, safety.Config{
		Enabled: true,
		Confirmation: safety.ConfirmationConfig{
			Enabled: true,
			Tools:   tools,
		},
	})
}

func TestExecutor_ConfirmationDenied(t *testing.T) {
	t.Parallel()

	pusher := newStubTool("git_push", "remote")
	requester := funcRequester(func(context.Context, ApprovalRequest) (ApprovalResponse, error) {
		return ApprovalResponse{Approved: false, Reason: "not now"}, nil
	})

	exec := NewExecutor(ExecutorConfig{
		Registry:  newTestRegistry(t, pusher),
		Safety:    confirmingSafety(t, "git_push"),
		Requester: requester,
		Logger:    discardLogger(),
	})

	res := exec.Execute(context.Background(), Call{Name: "git_push", Arguments: map[string]any{"remote": "origin"}})
	if res.Success {
		t.Fatal("denied call executed")
	}
	if !res.NeedsConfirmation {
		t.Error("denial missing NeedsConfirmation")
	}
	if !strings.Contains(res.Output, "not now") {
		t.Fatalf("output = %q", res.Output)
	}
}

func TestExecutor_ConfirmationApproved(t *testing.T) {
	t.Parallel()

	pusher := newStubTool("git_push", "remote")
	requester := funcRequester(func(context.Context, ApprovalRequest) (ApprovalResponse, error) {
		return ApprovalResponse{Approved: true}, nil
	})

	exec := NewExecutor(ExecutorConfig{
		Registry:  newTestRegistry(t, pusher),
		Safety:    confirmingSafety(t, "git_push"),
		Requester: requester,
		Logger:    discardLogger(),
	})

	res := exec.Execute(context.Background(), Call{Name: "git_push", Arguments: map[string]any{"remote": "origin"}})
	if !res.Success || pusher.Calls() != 1 {
		t.Fatalf("approved call: res=%+v calls=%d", res, pusher.Calls())
	}
}

func TestExecutor_ConfirmationWithoutRequesterBlocks(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(ExecutorConfig{
		Registry: newTestRegistry(t, newStubTool("git_push", "remote")),
		Safety:   confirmingSafety(t, "git_push"),
		Logger:   discardLogger(),
	})

	res := exec.Execute(context.Background(), Call{Name: "git_push"})
	if res.Success {
		t.Fatal("executed with no confirmer registered")
	}
	if !res.NeedsConfirmation {
		t.Error("missing NeedsConfirmation")
	}
}

func TestExecutor_TrustedWindowSkipsPrompt(t *testing.T) {
	t.Parallel()

	prompts := 0
	var mu sync.Mutex
	requester := funcRequester(func(context.Context, ApprovalRequest) (ApprovalResponse, error) {
		mu.Lock()
		prompts++
		mu.Unlock()
		return ApprovalResponse{Approved: true}, nil
	})

	trusted := NewTrustedWindow()
	trusted.Open(time.Hour)

	exec := NewExecutor(ExecutorConfig{
		Registry:  newTestRegistry(t, newStubTool("git_push", "remote")),
		Safety:    confirmingSafety(t, "git_push"),
		Requester: requester,
		Trusted:   trusted,
		Logger:    discardLogger(),
	})

	res := exec.Execute(context.Background(), Call{Name: "git_push"})
	if !res.Success {
		t.Fatalf("trusted call failed: %s", res.Output)
	}
	if prompts != 0 {
		t.Fatalf("prompted %d times inside trusted window", prompts)
	}
}

func TestExecutor_TrustedWindowNeverBypassesSafety(t *testing.T) {
	t.Parallel()

	trusted := NewTrustedWindow()
	trusted.Open(time.Hour)

	exec := NewExecutor(ExecutorConfig{
		Registry: newTestRegistry(t, newStubTool("execute_command", "command")),
		Safety:   blockModeSafety(t),
		Trusted:  trusted,
		Logger:   discardLogger(),
	})

	res := exec.Execute(context.Background(), Call{
		Name:      "execute_command",
		Arguments: map[string]any{"command": "rm -rf /"},
	})
	if res.Success {
		t.Fatal("trusted window bypassed a hard block")
	}
}

func TestExecutor_ToolErrorAndPanicAreContained(t *testing.T) {
	t.Parallel()

	failing := newStubTool("failing_tool")
	failing.err = errors.New("disk on fire")
	panicking := newStubTool("panicking_tool")
	panicking.panics = true

	exec := NewExecutor(ExecutorConfig{
		Registry: newTestRegistry(t, failing, panicking),
		Logger:   discardLogger(),
	})

	res := exec.Execute(context.Background(), Call{Name: "failing_tool"})
	if res.Success || !strings.Contains(res.Output, "disk on fire") {
		t.Fatalf("tool error result = %+v", res)
	}

	res = exec.Execute(context.Background(), Call{Name: "panicking_tool"})
	if res.Success || !strings.Contains(res.Output, "panicked") {
		t.Fatalf("panic result = %+v", res)
	}
}

func TestExecutor_AuditEntryForEveryCall(t *testing.T) {
	t.Parallel()

	auditLog := audit.NewLogger(audit.LoggerConfig{Log: discardLogger()})
	defer auditLog.Close()

	exec := NewExecutor(ExecutorConfig{
		Registry: newTestRegistry(t, newStubTool("read_file", "path"), newStubTool("execute_command", "command")),
		Safety:   blockModeSafety(t),
		Audit:    auditLog,
		Logger:   discardLogger(),
	})

	exec.Execute(context.Background(), Call{Name: "read_file", Arguments: map[string]any{"path": "a.txt"}})
	exec.Execute(context.Background(), Call{Name: "execute_command", Arguments: map[string]any{"command": "rm -rf /"}})
	exec.Execute(context.Background(), Call{Name: "no_such_tool"})

	entries := auditLog.Recent(0)
	if len(entries) != 3 {
		t.Fatalf("audit entries = %d, want 3 (executed, blocked, unknown)", len(entries))
	}

	// Most recent first: unknown, blocked, executed.
	if !entries[0].Blocked || entries[0].Reason != "unknown tool" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if !entries[1].Blocked || !strings.Contains(entries[1].Reason, "hard-blocked") {
		t.Errorf("entry 1 = %+v", entries[1])
	}
	if entries[2].Blocked || entries[2].Success == nil || !*entries[2].Success {
		t.Errorf("entry 2 = %+v", entries[2])
	}
}
