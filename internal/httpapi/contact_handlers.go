package httpapi

import (
	"net/http"

	"gigmaps-engine/internal/contact"
)

type ContactHandler struct {
	Relay ContactRelay
}

func (h ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var msg contact.Message
	if err := decodeJSON(r, &msg, false); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := h.Relay.Submit(r.Context(), msg); err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
