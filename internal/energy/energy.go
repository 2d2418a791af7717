// Package energy implements a persistent, regenerating budget that meters
// autonomous tool use. It is independent of the safety layer: a command can
// be perfectly safe and still too expensive to run right now.
package energy

import "time"

// Config holds the energy governor configuration.
type Config struct {
	// Enabled activates energy governance. When false, every check and
	// spend is allowed at zero cost and nothing is persisted.
	Enabled bool `yaml:"enabled"`

	// MaxEnergy is the budget ceiling.
	MaxEnergy float64 `yaml:"max_energy"`

	// RegenPerHour is the regeneration rate. Required when the governor
	// is enabled; there is no default.
	RegenPerHour float64 `yaml:"regen_per_hour"`

	// Costs overrides or extends the built-in cost table, keyed by tool
	// name. The "default" key replaces the unknown-tool cost.
	Costs map[string]float64 `yaml:"costs"`
}

// State is the ledger row: the single source of truth for how much
// autonomous action remains.
type State struct {
	Current      float64
	Max          float64
	RegenPerHour float64
	LastUpdate   time.Time
}

// Spend is one entry in the append-only spend history.
type Spend struct {
	Tool string
	Cost float64
	At   time.Time
}

// Result reports the outcome of a check or spend.
type Result struct {
	Allowed   bool
	Cost      float64
	Remaining float64

	// Reason explains a disallowed spend, e.g. the shortfall.
	Reason string
}

// regenerate returns the state advanced to now: energy accrues continuously
// at RegenPerHour, clamped to [0, Max]. Pure function of (state, now); the
// ledger has no background timer.
func regenerate(s State, now time.Time) State {
	if !now.After(s.LastUpdate) {
		return s
	}
	elapsed := now.Sub(s.LastUpdate).Hours()
	s.Current += elapsed * s.RegenPerHour
	if s.Current > s.Max {
		s.Current = s.Max
	}
	if s.Current < 0 {
		s.Current = 0
	}
	s.LastUpdate = now
	return s
}
