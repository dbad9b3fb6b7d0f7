package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"gigmaps-engine/internal/config"
	"gigmaps-engine/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomToken(t *testing.T) {
	a, err := randomToken(16)
	require.NoError(t, err)
	b, err := randomToken(16)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestWriteTokenFile(t *testing.T) {
	dir := t.TempDir()
	p, err := writeTokenFile(dir, "abc")
	require.NoError(t, err)

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "abc\n", string(b))
}

func TestShutdownHandler(t *testing.T) {
	token := "secret"
	srv := &http.Server{}
	h := shutdownHandler(&token, srv)

	tests := []struct {
		name   string
		method string
		remote string
		token  string
		want   int
	}{
		{"remote caller", http.MethodPost, "192.0.2.1:1234", "secret", http.StatusForbidden},
		{"wrong method", http.MethodGet, "127.0.0.1:1234", "secret", http.StatusMethodNotAllowed},
		{"missing token", http.MethodPost, "127.0.0.1:1234", "", http.StatusUnauthorized},
		{"wrong token", http.MethodPost, "127.0.0.1:1234", "nope", http.StatusUnauthorized},
		{"ok", http.MethodPost, "127.0.0.1:1234", "secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/shutdown", nil)
			req.RemoteAddr = tt.remote
			if tt.token != "" {
				req.Header.Set("X-Shutdown-Token", tt.token)
			}
			rec := httptest.NewRecorder()
			h(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestOpenStore_SQLiteDefault(t *testing.T) {
	cfg := config.Defaults()
	kv, cp, closeFn, err := openStore(cfg, t.TempDir())
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	assert.IsType(t, &store.SQLiteKV{}, kv)
	require.NotNil(t, cp)
	assert.NoError(t, cp.Checkpoint(context.Background()))
}

func TestOpenStore_RedisWithoutAddress(t *testing.T) {
	cfg := config.Defaults()
	cfg.Store.Driver = "redis"
	_, _, _, err := openStore(cfg, t.TempDir())
	assert.ErrorIs(t, err, store.ErrEmptyRedisAddress)
}
