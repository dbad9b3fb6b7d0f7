package httpapi

import (
	"errors"
	"net/http"
	"sync/atomic"

	"gigmaps-engine/internal/config"
	"gigmaps-engine/internal/datasource"
)

type DataSourceHandler struct {
	Tester ConnectionTester
	CfgVal *atomic.Value // stores config.Config
}

// Test probes the first configured platform's table. The outcome is always
// reported in the body so the settings screen can show it inline.
func (h DataSourceHandler) Test(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	if len(cfg.Platforms) == 0 {
		writeJSON(w, map[string]any{"ok": false, "configured": false, "message": "no platforms configured"})
		return
	}

	err := h.Tester.TestConnection(r.Context(), cfg.Platforms[0])
	switch {
	case err == nil:
		writeJSON(w, map[string]any{"ok": true, "configured": true, "message": "Connection successful"})
	case errors.Is(err, datasource.ErrNotConfigured):
		writeJSON(w, map[string]any{"ok": false, "configured": false, "message": "Supabase credentials not configured"})
	default:
		writeJSON(w, map[string]any{"ok": false, "configured": true, "message": err.Error()})
	}
}
