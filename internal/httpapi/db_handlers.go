package httpapi

import (
	"net/http"
)

type DBHandler struct {
	DB Checkpointer
}

func (h DBHandler) Checkpoint(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		WriteError(w, r, http.StatusNotImplemented, "not_supported", "store has no checkpoint")
		return
	}
	if err := h.DB.Checkpoint(r.Context()); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "checkpoint_failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
