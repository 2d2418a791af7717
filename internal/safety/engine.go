package safety

import "strings"

// Config is the full safety configuration, loaded once at startup and
// treated as immutable; live changes go through a rebuild via NewEngine.
type Config struct {
	// Enabled is the master switch. When false, every check passes.
	Enabled bool `yaml:"enabled"`

	CommandFilter  CommandFilterConfig  `yaml:"command_filter"`
	PathSandbox    PathSandboxConfig    `yaml:"path_sandbox"`
	SensitiveFiles SensitiveFilesConfig `yaml:"sensitive_files"`
	AuditLog       AuditLogConfig       `yaml:"audit_log"`
	Confirmation   ConfirmationConfig   `yaml:"confirmation"`
}

// AuditLogConfig configures the append-only audit sink.
type AuditLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ConfirmationConfig lists tools that require human approval before running.
type ConfirmationConfig struct {
	Enabled bool     `yaml:"enabled"`
	Tools   []string `yaml:"tools"`
}

// Defaults fills zero values. The command filter defaults to block mode.
func (c *Config) Defaults() {
	if c.CommandFilter.Mode == "" {
		c.CommandFilter.Mode = ModeBlock
	}
}

// Engine bundles the command filter and path guard behind one handle, so
// callers hold a single immutable snapshot of the safety configuration.
type Engine struct {
	cfg          Config
	filter       *CommandFilter
	guard        *PathGuard
	confirmTools map[string]struct{}
}

// NewEngine compiles the configuration into an engine. Rebuild by calling
// it again with fresh config; engines themselves are never mutated.
func NewEngine(cfg Config) (*Engine, error) {
	cfg.Defaults()

	filter, err := NewCommandFilter(cfg.CommandFilter)
	if err != nil {
		return nil, err
	}
	guard, err := NewPathGuard(cfg.PathSandbox, cfg.SensitiveFiles)
	if err != nil {
		return nil, err
	}

	confirm := make(map[string]struct{}, len(cfg.Confirmation.Tools))
	for _, t := range cfg.Confirmation.Tools {
		t = strings.TrimSpace(t)
		if t != "" {
			confirm[t] = struct{}{}
		}
	}

	return &Engine{
		cfg:          cfg,
		filter:       filter,
		guard:        guard,
		confirmTools: confirm,
	}, nil
}

// Enabled reports the master switch.
func (e *Engine) Enabled() bool { return e.cfg.Enabled }

// Mode returns the active command filter mode.
func (e *Engine) Mode() FilterMode { return e.filter.Mode() }

// CheckCommand classifies a shell command. Hard-blocked patterns are
// always checked, even when the command filter is disabled: the master
// switch and per-check switches gate the configurable rules only.
func (e *Engine) CheckCommand(command string) Decision {
	if !e.cfg.Enabled || !e.cfg.CommandFilter.Enabled {
		for _, rule := range hardBlockRules {
			if rule.pattern.MatchString(command) {
				return deny("hard-blocked: %s", rule.reason)
			}
		}
		return allow()
	}
	return e.filter.Classify(command)
}

// CheckPath runs the sandbox check followed by the sensitive-file check.
func (e *Engine) CheckPath(p, workDir string) Decision {
	if !e.cfg.Enabled {
		return allow()
	}
	if d := e.guard.CheckSandbox(p, workDir); !d.Allowed {
		return d
	}
	return e.guard.CheckSensitive(p, workDir)
}

// RequiresConfirmation reports whether the named tool needs human approval.
func (e *Engine) RequiresConfirmation(tool string) bool {
	if !e.cfg.Enabled || !e.cfg.Confirmation.Enabled {
		return false
	}
	_, ok := e.confirmTools[tool]
	return ok
}
