package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/tool"
)

func TestBuildLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.LogConfig
		want    slog.Level
		blocked slog.Level
	}{
		{"default is info", config.LogConfig{}, slog.LevelInfo, slog.LevelDebug},
		{"debug", config.LogConfig{Level: "debug"}, slog.LevelDebug, slog.LevelDebug - 4},
		{"warn", config.LogConfig{Level: "warn"}, slog.LevelWarn, slog.LevelInfo},
		{"error json", config.LogConfig{Level: "error", Format: "json"}, slog.LevelError, slog.LevelWarn},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			logger := buildLogger(tc.cfg)
			ctx := context.Background()
			if !logger.Enabled(ctx, tc.want) {
				t.Errorf("level %v disabled", tc.want)
			}
			if logger.Enabled(ctx, tc.blocked) {
				t.Errorf("level %v enabled", tc.blocked)
			}
		})
	}
}

func TestResolveConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if _, err := ResolveConfigPath(); err == nil {
		t.Fatal("expected error with no config anywhere")
	}

	path := filepath.Join(dir, "warden", "warden.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("version: \"1\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("ResolveConfigPath: %v", err)
	}
	if got != path {
		t.Fatalf("got %s, want %s", got, path)
	}
}

func TestNewAssemblesFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "warden.yaml")
	cfgYAML := `
version: "1"
data_dir: ` + filepath.Join(dir, "data") + `
workspace: ` + dir + `
safety:
  enabled: true
  command_filter:
    enabled: true
    mode: block
  audit_log:
    enabled: true
    path: ` + filepath.Join(dir, "data", "audit.jsonl") + `
energy:
  enabled: true
  max_energy: 20
  regen_per_hour: 2
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	registered := false
	app, err := New(RunParams{
		ConfigPath: cfgPath,
		RegisterTools: func(r *tool.Registry) error {
			registered = true
			return r.Register(noopTool{})
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer app.Close()

	if !registered || app.Registry.Len() != 1 {
		t.Error("tool registration hook not applied")
	}
	if app.Ledger.Available() != 20 {
		t.Errorf("fresh ledger = %v, want 20", app.Ledger.Available())
	}

	res := app.Executor.Execute(context.Background(), tool.Call{
		Name:      "noop",
		Arguments: map[string]any{"command": "rm -rf /"},
	})
	if res.Success {
		t.Error("hard-blocked command executed through assembled app")
	}

	// The ledger database landed in the configured data dir.
	if _, err := os.Stat(filepath.Join(dir, "data", "energy.db")); err != nil {
		t.Errorf("energy.db missing: %v", err)
	}
}

type noopTool struct{}

func (noopTool) Definition() tool.Definition {
	return tool.Definition{
		Name: "noop",
		Parameters: map[string]tool.Param{
			"command": {Type: "string"},
		},
	}
}

func (noopTool) Execute(context.Context, map[string]any, tool.ExecutionEnv) (tool.Result, error) {
	return tool.Result{Success: true, Output: "ok"}, nil
}
