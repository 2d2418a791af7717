package energy

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_LoadEmpty(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, filepath.Join(t.TempDir(), "energy.db"))
	_, ok, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("empty store reported a ledger row")
	}
}

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "energy.db")
	store := openTestStore(t, path)

	at := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)
	in := State{Current: 7.5, Max: 20, RegenPerHour: 2, LastUpdate: at}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Save is a replace, not an append.
	in.Current = 3.5
	if err := store.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Reopen to prove durability across instances.
	_ = store.Close()
	reopened := openTestStore(t, path)

	out, ok, err := reopened.Load()
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if out.Current != 3.5 || out.Max != 20 || out.RegenPerHour != 2 {
		t.Fatalf("loaded state = %+v", out)
	}
	if !out.LastUpdate.Equal(at) {
		t.Fatalf("LastUpdate = %v, want %v", out.LastUpdate, at)
	}
}

func TestSQLiteStore_HistoryOrderAndLimit(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, filepath.Join(t.TempDir(), "energy.db"))

	base := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	for i, tool := range []string{"read_file", "write_file", "git_commit"} {
		err := store.AppendSpend(Spend{Tool: tool, Cost: 1, At: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("AppendSpend: %v", err)
		}
	}

	h, err := store.History(2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(h) != 2 {
		t.Fatalf("history len = %d, want 2", len(h))
	}
	if h[0].Tool != "git_commit" || h[1].Tool != "write_file" {
		t.Fatalf("history order = %s, %s", h[0].Tool, h[1].Tool)
	}
}

func TestSQLiteStore_PruneSpends(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, filepath.Join(t.TempDir(), "energy.db"))

	base := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	_ = store.AppendSpend(Spend{Tool: "old", Cost: 1, At: base})
	_ = store.AppendSpend(Spend{Tool: "new", Cost: 1, At: base.Add(time.Hour)})

	removed, err := store.PruneSpends(base.Add(30 * time.Minute))
	if err != nil {
		t.Fatalf("PruneSpends: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	h, _ := store.History(0)
	if len(h) != 1 || h[0].Tool != "new" {
		t.Fatalf("history after prune = %+v", h)
	}
}

func TestLedger_SQLiteEndToEnd(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "energy.db")
	cfg := Config{Enabled: true, MaxEnergy: 20, RegenPerHour: 2}

	store := openTestStore(t, path)
	l, err := NewLedger(cfg, store, testLogger())
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	if r := l.Spend("execute_command"); !r.Allowed {
		t.Fatalf("spend: %+v", r)
	}

	// A fresh process over the same database resumes where we left off.
	_ = store.Close()
	store2 := openTestStore(t, path)
	l2, err := NewLedger(cfg, store2, testLogger())
	if err != nil {
		t.Fatalf("NewLedger (reopen): %v", err)
	}
	if got := l2.Available(); got > 16.5 {
		t.Fatalf("available after restart = %v, want ~16 (no silent reset)", got)
	}
	h, err := l2.History(0)
	if err != nil || len(h) != 1 || h[0].Tool != "execute_command" {
		t.Fatalf("history after restart = %+v err=%v", h, err)
	}
}
