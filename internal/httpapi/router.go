package httpapi

import (
	"net/http"

	"gigmaps-engine/internal/logger"
)

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: HealthHandler{Now: d.Now}.Health,
	}))

	// Jobs
	jh := JobsHandler{Session: d.Session, Now: d.now}
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))
	mux.HandleFunc("/jobs/reload", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: jh.Reload,
	}))

	// Platforms
	ph := PlatformHandler{Session: d.Session}
	mux.HandleFunc("/platform", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.Get,
		http.MethodPut: ph.Put,
	}))
	mux.HandleFunc("/platforms", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.List,
	}))

	// Pro
	pro := ProHandler{Session: d.Session, CfgVal: d.CfgVal, Now: d.now}
	mux.HandleFunc("/pro", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: pro.Get,
	}))
	mux.HandleFunc("/pro/mock", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: pro.MockPurchase,
	}))
	mux.HandleFunc("/pro/license", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: pro.ActivateLicense,
	}))

	// Contact
	if d.Contact != nil {
		cth := ContactHandler{Relay: d.Contact}
		mux.HandleFunc("/contact", methodMux(map[string]http.HandlerFunc{
			http.MethodPost: cth.Submit,
		}))
	}

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
		OnSaved:     d.Session.ApplyConfig,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Data source
	if d.DataSource != nil {
		dsh := DataSourceHandler{Tester: d.DataSource, CfgVal: d.CfgVal}
		mux.HandleFunc("/datasource/test", methodMux(map[string]http.HandlerFunc{
			http.MethodPost: dsh.Test,
		}))
	}

	// Secrets (use cfgVal, NOT a snapshot cfg)
	if d.SetDataSourceKey != nil {
		sh := SecretsHandler{CfgVal: d.CfgVal, Set: d.SetDataSourceKey}
		mux.HandleFunc("/secrets/datasource", methodMux(map[string]http.HandlerFunc{
			http.MethodPost: LocalOnly(sh.SetDataSourceKey),
		}))
	}

	// DB maintenance
	dbh := DBHandler{DB: d.DB}
	mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: LocalOnly(dbh.Checkpoint),
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// Metrics
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics.Handler())
	}

	return mux
}

// NewHandler wraps h in the standard middleware chain.
func NewHandler(h http.Handler, d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return Chain(h,
		RequestID(log),
		Recover,
		AccessLog,
		Metrics(d.Metrics),
		Cors,
	)
}
