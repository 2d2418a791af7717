package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const wsWriteTimeout = 5 * time.Second

// handleAuditStream upgrades GET /ws/audit and forwards every audit entry
// recorded after the subscription as one JSON message. Delivery follows the
// audit logger's contract: a slow client misses entries rather than holding
// up tool calls.
func (s *Server) handleAuditStream(w http.ResponseWriter, r *http.Request) {
	if s.deps.Audit == nil {
		http.Error(w, "audit log not configured", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "unexpected close")
	}()

	entries, cancel := s.deps.Audit.Subscribe()
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case entry, ok := <-entries:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "audit log closed")
				return
			}
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, wsWriteTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancelWrite()
			if err != nil {
				return
			}
		}
	}
}
