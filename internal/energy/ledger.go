package energy

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrRegenRequired is returned when the governor is enabled without a
// regeneration rate. There is deliberately no default rate.
var ErrRegenRequired = errors.New("energy: regen_per_hour is required when the governor is enabled")

// ErrMaxRequired is returned when the governor is enabled without a budget
// ceiling.
var ErrMaxRequired = errors.New("energy: max_energy is required when the governor is enabled")

// Ledger is the energy governor: one serialized ledger of spends over a
// lazily regenerating balance. All methods are safe for concurrent use;
// Spend is the only mutation and holds the lock for its full read-decide-
// write cycle so concurrent spends cannot race past the balance.
type Ledger struct {
	mu      sync.Mutex
	store   Store
	costs   map[string]CostEntry
	enabled bool
	state   State
	now     func() time.Time
	logger  *slog.Logger
}

// NewLedger builds a ledger from config and a store. With the governor
// enabled, persisted state is loaded if present; a fresh store starts at
// full energy. Max and regen changes in config take effect immediately.
func NewLedger(cfg Config, store Store, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	l := &Ledger{
		store:   store,
		costs:   costTable(cfg.Costs),
		enabled: cfg.Enabled,
		now:     time.Now,
		logger:  logger,
	}

	if !cfg.Enabled {
		return l, nil
	}
	if cfg.MaxEnergy <= 0 {
		return nil, ErrMaxRequired
	}
	if cfg.RegenPerHour <= 0 {
		return nil, ErrRegenRequired
	}

	state, ok, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("energy: loading ledger state: %w", err)
	}
	if !ok {
		state = State{
			Current:    cfg.MaxEnergy,
			LastUpdate: l.now(),
		}
	}

	// Config is authoritative for the ceiling and rate; the stored row
	// only carries the balance forward.
	state.Max = cfg.MaxEnergy
	state.RegenPerHour = cfg.RegenPerHour
	if state.Current > state.Max {
		state.Current = state.Max
	}
	l.state = state

	if err := store.Save(l.state); err != nil {
		return nil, fmt.Errorf("energy: saving ledger state: %w", err)
	}
	return l, nil
}

// SetNow overrides the clock. Intended for tests.
func (l *Ledger) SetNow(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Enabled reports whether the governor is active.
func (l *Ledger) Enabled() bool { return l.enabled }

// Cost returns the table cost for a tool, falling back to the default
// entry for unknown names.
func (l *Ledger) Cost(tool string) float64 {
	if !l.enabled {
		return 0
	}
	return l.lookup(tool).Cost
}

func (l *Ledger) lookup(tool string) CostEntry {
	if entry, ok := l.costs[tool]; ok {
		return entry
	}
	return l.costs[DefaultCostKey]
}

// Check reports whether a spend for the tool would be allowed right now,
// without mutating any state.
func (l *Ledger) Check(tool string) Result {
	if !l.enabled {
		return Result{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s := regenerate(l.state, l.now())
	cost := l.lookup(tool).Cost
	return Result{
		Allowed:   cost <= s.Current,
		Cost:      cost,
		Remaining: s.Current,
	}
}

// Spend deducts the tool's cost from the balance and persists the new
// state. On insufficient energy the state is unchanged and Reason explains
// the shortfall.
func (l *Ledger) Spend(tool string) Result {
	if !l.enabled {
		return Result{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	s := regenerate(l.state, now)
	cost := l.lookup(tool).Cost

	if cost > s.Current {
		// Persist the regeneration but not a deduction.
		l.state = s
		l.persist()
		return Result{
			Allowed:   false,
			Cost:      cost,
			Remaining: s.Current,
			Reason:    fmt.Sprintf("Insufficient energy: need %.1f, have %.1f", cost, s.Current),
		}
	}

	s.Current -= cost
	l.state = s
	l.persist()

	if err := l.store.AppendSpend(Spend{Tool: tool, Cost: cost, At: now}); err != nil {
		l.logger.Warn("energy: recording spend failed", "tool", tool, "error", err)
	}

	return Result{Allowed: true, Cost: cost, Remaining: s.Current}
}

// persist writes the current state; callers hold the lock.
func (l *Ledger) persist() {
	if err := l.store.Save(l.state); err != nil {
		l.logger.Warn("energy: persisting ledger state failed", "error", err)
	}
}

// Available returns the regenerated balance without mutating state.
func (l *Ledger) Available() float64 {
	if !l.enabled {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return regenerate(l.state, l.now()).Current
}

// Snapshot returns the regenerated state for display.
func (l *Ledger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return regenerate(l.state, l.now())
}

// History returns past spends, most recent first.
func (l *Ledger) History(limit int) ([]Spend, error) {
	return l.store.History(limit)
}

// PruneHistory removes spend entries older than the retention window.
func (l *Ledger) PruneHistory(retention time.Duration) (int, error) {
	l.mu.Lock()
	cutoff := l.now().Add(-retention)
	l.mu.Unlock()
	return l.store.PruneSpends(cutoff)
}
