package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/refuelos/ledger/internal/dictionary"
	"github.com/refuelos/ledger/internal/ledger"
)

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	toJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz probes every backing store; any failure makes the instance unready.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
	defer cancel()
	for _, c := range s.ready {
		if err := c.Ready(ctx); err != nil {
			s.log.WarnContext(ctx, "readiness check failed", "err", err)
			writeErr(w, http.StatusServiceUnavailable, "not ready", "not_ready")
			return
		}
	}
	toJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// GET /v1/dictionary/chart?type=
func (s *Server) getChartDictionary(w http.ResponseWriter, r *http.Request) {
	var filter *ledger.AccountType
	if t := r.URL.Query().Get("type"); t != "" {
		typ := ledger.AccountType(strings.ToUpper(t))
		if !typ.Valid() {
			badRequest(w, "invalid type")
			return
		}
		filter = &typ
	}
	toJSON(w, http.StatusOK, map[string]any{"items": dictionary.Chart(filter)})
}
