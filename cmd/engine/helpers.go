package main

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gigmaps-engine/internal/httpapi"
)

const tokenFileName = "engine.token"

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// writeTokenFile leaves the shutdown token where only the local user can read it.
func writeTokenFile(dataDir, token string) (string, error) {
	p := filepath.Join(dataDir, tokenFileName)
	return p, os.WriteFile(p, []byte(token+"\n"), 0o600)
}

func shutdownHandler(token *string, srv *http.Server) http.HandlerFunc {
	return httpapi.LocalOnly(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpapi.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "POST only")
			return
		}

		// Token guard
		got := r.Header.Get("X-Shutdown-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(*token)) != 1 {
			httpapi.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}

		// Respond immediately, then shutdown asynchronously
		httpapi.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "shutting_down": true})

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	})
}
