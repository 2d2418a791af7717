// Package app assembles the warden daemon: configuration, the safety
// engine, the energy ledger, the audit log, the tool executor, and the
// admin gateway, with a blocking run loop on top.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/confirm"
	"github.com/wardenhq/warden/internal/energy"
	"github.com/wardenhq/warden/internal/gateway"
	"github.com/wardenhq/warden/internal/safety"
	"github.com/wardenhq/warden/internal/tool"
)

// spendRetention bounds how long individual spend entries are kept. The
// ledger balance itself is unaffected by pruning.
const spendRetention = 30 * 24 * time.Hour

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the config file's persistent data directory.
	DataDir string

	// Workspace overrides the config file's working directory.
	Workspace string

	// Interactive runs the executor in the interactive context: energy
	// governance is bypassed and confirmations prompt on the terminal.
	Interactive bool

	// RegisterTools populates the tool registry. The governor admits
	// calls; what the tools actually do is the embedder's business.
	RegisterTools func(*tool.Registry) error
}

// App is the assembled daemon. Built by New, torn down by Close.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Safety   *safety.Engine
	Ledger   *energy.Ledger
	Audit    *audit.Logger
	Registry *tool.Registry
	Executor *tool.Executor
	Trusted  *tool.TrustedWindow

	gateway   *gateway.Server
	cron      *cron.Cron
	auditFile io.Closer
	store     io.Closer
}

// New loads configuration and wires every component without starting any
// of the background pieces; Run does that.
func New(params RunParams) (*App, error) {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	workspace := params.Workspace
	if workspace == "" {
		workspace = cfg.Workspace
	}
	if workspace == "" {
		workspace = DefaultWorkspace()
	}

	logger := buildLogger(cfg.Log)
	app := &App{Config: cfg, Logger: logger}

	// Energy ledger over SQLite, so the balance survives restarts.
	var store energy.Store = energy.NewMemStore()
	if cfg.Energy.Enabled {
		sqlStore, err := energy.OpenSQLiteStore(filepath.Join(dataDir, "energy.db"))
		if err != nil {
			return nil, fmt.Errorf("opening energy store: %w", err)
		}
		app.store = sqlStore
		store = sqlStore
	}
	ledger, err := energy.NewLedger(cfg.Energy, store, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Ledger = ledger

	// Audit sink. The file is optional; the in-memory tail always works.
	var auditWriter io.Writer
	if cfg.Safety.AuditLog.Enabled {
		path := cfg.Safety.AuditLog.Path
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			app.Close()
			return nil, fmt.Errorf("creating audit log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
		app.auditFile = f
		auditWriter = f
	}
	app.Audit = audit.NewLogger(audit.LoggerConfig{
		Writer:   auditWriter,
		Redactor: audit.NewRedactor(),
		Log:      logger,
	})

	engine, err := safety.NewEngine(cfg.Safety)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Safety = engine

	app.Registry = tool.NewRegistry()
	if params.RegisterTools != nil {
		if err := params.RegisterTools(app.Registry); err != nil {
			app.Close()
			return nil, fmt.Errorf("registering tools: %w", err)
		}
	}

	app.Trusted = tool.NewTrustedWindow()

	mode := tool.ModeAutonomous
	var requester tool.ApprovalRequester
	if params.Interactive {
		mode = tool.ModeInteractive
		requester = confirm.NewTerminal()
	}

	var metrics *gateway.Metrics
	if cfg.Gateway.Enabled {
		metrics = gateway.NewMetrics(ledger, app.Audit)
	}

	execCfg := tool.ExecutorConfig{
		Registry:  app.Registry,
		Safety:    engine,
		Ledger:    ledger,
		Audit:     app.Audit,
		Requester: requester,
		Trusted:   app.Trusted,
		Mode:      mode,
		Env:       tool.ExecutionEnv{Workspace: workspace, DataDir: dataDir},
		Logger:    logger,
	}
	if metrics != nil {
		// Assigning a nil *gateway.Metrics directly would make the
		// DecisionRecorder interface non-nil.
		execCfg.Metrics = metrics
	}
	app.Executor = tool.NewExecutor(execCfg)

	if cfg.Gateway.Enabled {
		app.gateway = gateway.NewServer(cfg.Gateway, gateway.Deps{
			Safety:   engine,
			Ledger:   ledger,
			Audit:    app.Audit,
			Registry: app.Registry,
			Metrics:  metrics,
		}, logger)
	}

	return app, nil
}

// Run starts the gateway and maintenance jobs and blocks until a shutdown
// signal arrives.
func (a *App) Run() error {
	if a.gateway != nil {
		if err := a.gateway.Start(); err != nil {
			a.Close()
			return err
		}
	}

	if a.Ledger.Enabled() {
		a.cron = cron.New()
		_, err := a.cron.AddFunc("@daily", func() {
			n, err := a.Ledger.PruneHistory(spendRetention)
			if err != nil {
				a.Logger.Warn("spend history prune failed", "error", err)
				return
			}
			if n > 0 {
				a.Logger.Info("spend history pruned", "removed", n)
			}
		})
		if err != nil {
			a.Close()
			return fmt.Errorf("scheduling spend prune: %w", err)
		}
		a.cron.Start()
	}

	a.Logger.Info("warden started",
		"safety", a.Safety.Enabled(),
		"energy", a.Ledger.Enabled(),
		"tools", a.Registry.Len(),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	a.Logger.Info("shutdown signal received", "signal", sig.String())
	a.Close()
	a.Logger.Info("shutdown complete")
	return nil
}

// Close tears everything down in reverse dependency order. Safe to call
// more than once and on a partially built App.
func (a *App) Close() {
	if a.cron != nil {
		ctx := a.cron.Stop()
		<-ctx.Done()
		a.cron = nil
	}
	if a.gateway != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = a.gateway.Stop(ctx)
		cancel()
		a.gateway = nil
	}
	if a.Audit != nil {
		a.Audit.Close()
		a.Audit = nil
	}
	if a.auditFile != nil {
		_ = a.auditFile.Close()
		a.auditFile = nil
	}
	if a.store != nil {
		_ = a.store.Close()
		a.store = nil
	}
}

// Run is the one-call entry point used by the CLI.
func Run(params RunParams) error {
	app, err := New(params)
	if err != nil {
		return err
	}
	return app.Run()
}

// buildLogger constructs the process logger from config.
func buildLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
