package contact

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"gigmaps-engine/internal/config"
	"gigmaps-engine/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var good = Message{Name: "Ana", Email: "ana@example.com", Subject: "Hi", Message: "No gigs near 73301?"}

func TestSubmit_BothLegs(t *testing.T) {
	var formHits, notifyHits atomic.Int32

	form := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		formHits.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var got Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, good, got)
	}))
	defer form.Close()

	notify := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		notifyHits.Add(1)
		b, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(b), "From: Ana <ana@example.com>")
		assert.Contains(t, string(b), "No gigs near 73301?")
	}))
	defer notify.Close()

	relay := NewRelay(config.Contact{FormURL: form.URL, NotifyURL: notify.URL}, nil, logger.NewNop())
	require.NoError(t, relay.Submit(context.Background(), good))
	assert.EqualValues(t, 1, formHits.Load())
	assert.EqualValues(t, 1, notifyHits.Load())
}

func TestSubmit_OneLegFailsGivesOneError(t *testing.T) {
	form := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer form.Close()
	notify := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer notify.Close()

	relay := NewRelay(config.Contact{FormURL: form.URL, NotifyURL: notify.URL}, nil, logger.NewNop())
	err := relay.Submit(context.Background(), good)
	assert.ErrorIs(t, err, ErrRelayFailed)
}

func TestSubmit_EmptyURLSkipsLeg(t *testing.T) {
	var hits atomic.Int32
	form := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer form.Close()

	relay := NewRelay(config.Contact{FormURL: form.URL}, nil, logger.NewNop())
	require.NoError(t, relay.Submit(context.Background(), good))
	assert.EqualValues(t, 1, hits.Load())
}

func TestSubmit_Validation(t *testing.T) {
	relay := NewRelay(config.Contact{}, nil, logger.NewNop())
	tests := []struct {
		name string
		msg  Message
	}{
		{"missing name", Message{Email: "a@b.co", Message: "x"}},
		{"missing email", Message{Name: "A", Message: "x"}},
		{"blank message", Message{Name: "A", Email: "a@b.co", Message: "   "}},
		{"bad email", Message{Name: "A", Email: "not-an-email", Message: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, relay.Submit(context.Background(), tt.msg), ErrInvalidMessage)
		})
	}
}
