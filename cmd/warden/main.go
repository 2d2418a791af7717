// Package main is the entry point for the warden CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/energy"
	"github.com/wardenhq/warden/internal/safety"
	"github.com/wardenhq/warden/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "warden",
		Short:         "Safety, budget, and audit governance for agent tool calls",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), startCmd(), checkCmd(), energyCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("warden %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the warden daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			workspace, _ := cmd.Flags().GetString("workspace")
			interactive, _ := cmd.Flags().GetBool("interactive")

			return app.Run(app.RunParams{
				ConfigPath:  cfgPath,
				Version:     version,
				Commit:      commit,
				Date:        date,
				DataDir:     dataDir,
				Workspace:   workspace,
				Interactive: interactive,
			})
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().String("data-dir", "", "Override the persistent data directory")
	cmd.Flags().String("workspace", "", "Override the working directory")
	cmd.Flags().BoolP("interactive", "i", false, "Run in the interactive context (energy ungoverned, terminal confirmations)")
	return cmd
}

// checkCmd classifies a shell command against the active safety config
// without executing anything.
func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <command>",
		Short: "Classify a shell command against the safety rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			engine, err := safety.NewEngine(cfg.Safety)
			if err != nil {
				return err
			}

			d := engine.CheckCommand(args[0])
			if d.Allowed {
				fmt.Printf("allowed (mode: %s)\n", engine.Mode())
				return nil
			}
			fmt.Printf("denied: %s\n", d.Reason)
			// Non-zero exit so shell scripts can branch on the verdict.
			os.Exit(1)
			return nil
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

// energyCmd prints the persisted ledger state and recent spends.
func energyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "energy",
		Short: "Show the energy balance and recent spends",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cfg.Energy.Enabled {
				fmt.Println("energy governance is disabled")
				return nil
			}

			dataDir := cfg.DataDir
			if dataDir == "" {
				dataDir = app.DefaultDataDir()
			}
			store, err := energy.OpenSQLiteStore(filepath.Join(dataDir, "energy.db"))
			if err != nil {
				return err
			}
			defer store.Close()

			ledger, err := energy.NewLedger(cfg.Energy, store, nil)
			if err != nil {
				return err
			}

			snap := ledger.Snapshot()
			fmt.Printf("energy: %.1f / %.1f (regen %.1f/h)\n", snap.Current, snap.Max, snap.RegenPerHour)

			history, err := ledger.History(10)
			if err != nil {
				return err
			}
			if len(history) == 0 {
				return nil
			}
			fmt.Println("\nrecent spends:")
			for _, s := range history {
				fmt.Printf("  %s  %-20s %.1f\n", s.At.Local().Format("2006-01-02 15:04:05"), s.Tool, s.Cost)
			}
			return nil
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		resolved, err := app.ResolveConfigPath()
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
	return cfg, nil
}
