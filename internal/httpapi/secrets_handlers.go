package httpapi

import (
	"net/http"
	"sync/atomic"

	"gigmaps-engine/internal/config"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
	Set    func(account, key string) error
}

type setDataSourceKeyReq struct {
	Key string `json:"key"`
}

// SetDataSourceKey stores the key in the OS keychain. It is picked up on the
// next engine start.
func (h SecretsHandler) SetDataSourceKey(w http.ResponseWriter, r *http.Request) {
	var req setDataSourceKeyReq
	if err := decodeJSON(r, &req, false); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if err := h.Set(cfg.DataSource.KeyringAccount, req.Key); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring_error", "failed to store key: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
