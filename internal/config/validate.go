package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"

	"github.com/wardenhq/warden/internal/safety"
)

// Validate checks the structural validity of a Config. All problems are
// collected and reported together rather than one at a time.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateSafety(&cfg.Safety)...)
	errs = append(errs, validateEnergy(cfg)...)
	errs = append(errs, validateGateway(cfg)...)

	return errors.Join(errs...)
}

func validateSafety(sc *safety.Config) []error {
	var errs []error

	switch sc.CommandFilter.Mode {
	case "", safety.ModeBlock, safety.ModeAllow:
	default:
		errs = append(errs, fmt.Errorf("config: safety.command_filter.mode %q is not %q or %q",
			sc.CommandFilter.Mode, safety.ModeBlock, safety.ModeAllow))
	}

	for i, p := range sc.CommandFilter.BlockPatterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("config: safety.command_filter.block_patterns[%d]: %w", i, err))
		}
	}
	for i, p := range sc.SensitiveFiles.Patterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("config: safety.sensitive_files.patterns[%d]: %w", i, err))
		}
	}

	if sc.AuditLog.Enabled && sc.AuditLog.Path == "" {
		errs = append(errs, errors.New("config: safety.audit_log.path is required when the audit log is enabled"))
	}

	return errs
}

func validateEnergy(cfg *Config) []error {
	if !cfg.Energy.Enabled {
		return nil
	}
	var errs []error

	if cfg.Energy.MaxEnergy <= 0 {
		errs = append(errs, errors.New("config: energy.max_energy must be positive when energy is enabled"))
	}
	if cfg.Energy.RegenPerHour <= 0 {
		errs = append(errs, errors.New("config: energy.regen_per_hour must be positive when energy is enabled"))
	}
	for tool, cost := range cfg.Energy.Costs {
		if cost <= 0 {
			errs = append(errs, fmt.Errorf("config: energy.costs[%s] must be positive, got %v", tool, cost))
		}
	}

	return errs
}

func validateGateway(cfg *Config) []error {
	if !cfg.Gateway.Enabled {
		return nil
	}
	var errs []error

	if _, err := net.ResolveTCPAddr("tcp", cfg.Gateway.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: gateway.bind %q is not a valid address", cfg.Gateway.Bind))
	}

	return errs
}
