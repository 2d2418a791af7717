// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for warden.
package config

import (
	"github.com/wardenhq/warden/internal/energy"
	"github.com/wardenhq/warden/internal/gateway"
	"github.com/wardenhq/warden/internal/safety"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir holds persistent state: the energy ledger database and, by
	// default, the audit log. Defaults to ~/.warden.
	DataDir string `yaml:"data_dir"`

	// Workspace is the working directory relative paths resolve against
	// and the default sandbox root. Defaults to the current directory.
	Workspace string `yaml:"workspace"`

	Log     LogConfig      `yaml:"log"`
	Safety  safety.Config  `yaml:"safety"`
	Energy  energy.Config  `yaml:"energy"`
	Gateway gateway.Config `yaml:"gateway"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`

	// Format is "text" or "json". Defaults to text.
	Format string `yaml:"format"`
}
