package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/energy"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, HealthResponse{
			Status: "ok",
			Uptime: int64(time.Since(s.startedAt).Seconds()),
		})
	}
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime        int64           `json:"uptime_seconds"`
	SafetyEnabled bool            `json:"safety_enabled"`
	FilterMode    string          `json:"filter_mode,omitempty"`
	Tools         []string        `json:"tools,omitempty"`
	Energy        *EnergyResponse `json:"energy,omitempty"`
	AuditDropped  int64           `json:"audit_dropped"`
}

// EnergyResponse is the ledger view shared by /status and /api/energy.
type EnergyResponse struct {
	Enabled      bool      `json:"enabled"`
	Current      float64   `json:"current"`
	Max          float64   `json:"max"`
	RegenPerHour float64   `json:"regen_per_hour"`
	LastUpdate   time.Time `json:"last_update"`
}

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime: int64(time.Since(s.startedAt).Seconds()),
		}
		if s.deps.Safety != nil {
			resp.SafetyEnabled = s.deps.Safety.Enabled()
			resp.FilterMode = string(s.deps.Safety.Mode())
		}
		if s.deps.Registry != nil {
			resp.Tools = s.deps.Registry.Names()
		}
		if s.deps.Ledger != nil {
			resp.Energy = energyResponse(s.deps.Ledger)
		}
		if s.deps.Audit != nil {
			resp.AuditDropped = s.deps.Audit.Dropped()
		}
		writeJSON(w, resp)
	}
}

// handleEnergy serves GET /api/energy: the current balance plus recent
// spends, most recent first.
func (s *Server) handleEnergy() http.HandlerFunc {
	type response struct {
		*EnergyResponse
		History []energy.Spend `json:"history"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Ledger == nil {
			http.Error(w, "energy governor not configured", http.StatusNotFound)
			return
		}
		history, err := s.deps.Ledger.History(queryLimit(r, 50))
		if err != nil {
			s.logger.Warn("energy history read failed", "error", err)
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, response{
			EnergyResponse: energyResponse(s.deps.Ledger),
			History:        history,
		})
	}
}

// handleAudit serves GET /api/audit: the in-memory audit tail, most recent
// first. Entries are already redacted at record time.
func (s *Server) handleAudit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Audit == nil {
			http.Error(w, "audit log not configured", http.StatusNotFound)
			return
		}
		entries := s.deps.Audit.Recent(queryLimit(r, 100))
		if entries == nil {
			entries = []audit.Entry{}
		}
		writeJSON(w, entries)
	}
}

func energyResponse(l *energy.Ledger) *EnergyResponse {
	snap := l.Snapshot()
	return &EnergyResponse{
		Enabled:      l.Enabled(),
		Current:      snap.Current,
		Max:          snap.Max,
		RegenPerHour: snap.RegenPerHour,
		LastUpdate:   snap.LastUpdate,
	}
}

func queryLimit(r *http.Request, def int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
