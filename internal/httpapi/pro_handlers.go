package httpapi

import (
	"net/http"
	"sync/atomic"
	"time"

	"gigmaps-engine/internal/config"
	"gigmaps-engine/internal/entitlement"
	"gigmaps-engine/internal/logger"
)

type ProHandler struct {
	Session Session
	CfgVal  *atomic.Value // stores config.Config
	Now     func() time.Time
}

type proResponse struct {
	entitlement.Status
	Remaining     entitlement.Remaining `json:"remaining"`
	RemainingText string                `json:"remainingText"`
	PriceUSD      float64               `json:"priceUSD"`
	DurationDays  int                   `json:"accessDurationDays"`
	Features      []string              `json:"features"`
	RefundPolicy  config.RefundPolicy   `json:"refundPolicy"`
}

func (h ProHandler) response(st entitlement.Status) proResponse {
	pro := h.CfgVal.Load().(config.Config).Pro
	rem := st.Remaining(h.Now())
	return proResponse{
		Status:        st,
		Remaining:     rem,
		RemainingText: rem.String(),
		PriceUSD:      pro.PriceUSD,
		DurationDays:  pro.AccessDurationDays,
		Features:      pro.Features,
		RefundPolicy:  pro.RefundPolicy,
	}
}

func (h ProHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.response(h.Session.Entitlement()))
}

func (h ProHandler) MockPurchase(w http.ResponseWriter, r *http.Request) {
	st, err := h.Session.ActivateMock(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Warn("mock purchase failed", logger.Error(err))
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, h.response(st))
}

type licenseReq struct {
	LicenseKey string `json:"license_key"`
}

func (h ProHandler) ActivateLicense(w http.ResponseWriter, r *http.Request) {
	var req licenseReq
	if err := decodeJSON(r, &req, false); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	st, err := h.Session.ActivateLicense(r.Context(), req.LicenseKey)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, h.response(st))
}
