package httpapi

import (
	"net/http"
	"time"

	"gigmaps-engine/internal/logger"
)

type JobsHandler struct {
	Session Session
	Now     func() time.Time
}

// List returns the current view: listings with blur applied, plus Pro status.
func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Session.View(h.Now()))
}

func (h JobsHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Reload(r.Context()); err != nil {
		logger.FromContext(r.Context()).Warn("reload failed", logger.Error(err))
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, h.Session.View(h.Now()))
}
