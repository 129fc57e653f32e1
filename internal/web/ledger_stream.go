package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/sse"
)

// LedgerStream pushes ledger events to the invoices page as Server-Sent Events.
type LedgerStream struct {
	Hub    *sse.LedgerHub
	Logger *logger.Logger
	// Heartbeat keeps idle proxies from closing the stream.
	Heartbeat time.Duration
}

func (s *LedgerStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// the server write timeout would otherwise end the stream
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.Logger.Warn("SSE", fmt.Sprintf("Failed to clear write deadline: %v", err))
	}

	setupSSEHeaders(w)
	ctx := r.Context()
	events := s.Hub.Subscribe(ctx)

	fmt.Fprint(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	if err := rc.Flush(); err != nil {
		s.Logger.Error("SSE", fmt.Sprintf("Streaming unsupported: %v", err))
		return
	}
	s.Logger.Debug("SSE", fmt.Sprintf("Ledger client connected (%d total)", s.Hub.ClientCount()))

	heartbeat := s.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				s.Logger.Error("SSE", fmt.Sprintf("Failed to serialize ledger event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload)
			if err := rc.Flush(); err != nil {
				return
			}

		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			if err := rc.Flush(); err != nil {
				return
			}

		case <-ctx.Done():
			s.Logger.Debug("SSE", "Ledger client disconnected")
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
