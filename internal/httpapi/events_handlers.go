package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gigmaps-engine/internal/events"
	"gigmaps-engine/internal/logger"
)

const (
	defaultHeartbeat = 15 * time.Second
	sseRetryMS       = 3000
)

type EventsHandler struct {
	Hub       *events.Hub
	Heartbeat time.Duration // 0 means defaultHeartbeat
}

// ServeSSE streams hub events. Each frame is named after the envelope type so
// the UI can addEventListener per type.
func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(ch)

	log := logger.FromContext(r.Context())
	log.Debug("sse client connected", logger.Int("subscribers", h.Hub.Subscribers()))

	fmt.Fprintf(w, "retry: %d\n\n", sseRetryMS)
	writeFrame(w, "ping", events.MakeEvent(RequestIDFrom(r.Context()), "ping", 1, nil))
	flusher.Flush()

	interval := h.Heartbeat
	if interval <= 0 {
		interval = defaultHeartbeat
	}
	heartbeat := time.NewTicker(interval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug("sse client disconnected")
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat %s\n\n", time.Now().UTC().Format(time.RFC3339))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			writeFrame(w, frameName(msg), msg)
			flusher.Flush()
		}
	}
}

func writeFrame(w io.Writer, name, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}

// frameName reads the envelope type, falling back to the generic SSE name.
func frameName(msg string) string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(msg), &head); err != nil || head.Type == "" {
		return "message"
	}
	return head.Type
}
