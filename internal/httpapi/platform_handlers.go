package httpapi

import (
	"net/http"
	"strings"

	"gigmaps-engine/internal/domain"
)

type PlatformHandler struct {
	Session Session
}

type platformJSON struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func toPlatformJSON(p domain.Platform) platformJSON {
	return platformJSON{Slug: p.Slug, Name: p.DisplayName()}
}

func (h PlatformHandler) List(w http.ResponseWriter, r *http.Request) {
	ps := h.Session.Platforms()
	out := make([]platformJSON, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPlatformJSON(p))
	}
	writeJSON(w, out)
}

func (h PlatformHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := h.Session.State()
	writeJSON(w, map[string]any{
		"platform":   s.Platform,
		"generation": s.Generation,
		"loading":    s.Loading,
	})
}

type switchPlatformReq struct {
	Platform string `json:"platform"`
}

// Put switches platform and answers once the new list is selected.
func (h PlatformHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req switchPlatformReq
	if err := decodeJSON(r, &req, false); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	slug := strings.ToLower(strings.TrimSpace(req.Platform))
	if slug == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_platform", "platform is required")
		return
	}
	if err := h.Session.SwitchPlatform(r.Context(), slug); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s := h.Session.State()
	writeJSON(w, map[string]any{
		"platform":   s.Platform,
		"generation": s.Generation,
		"count":      len(s.Postings),
	})
}
