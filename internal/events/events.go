package events

import (
	"encoding/json"
	"time"
)

// Event types pushed to the UI over /events.
const (
	TypeJobsUpdated    = "jobs_updated"
	TypePostalResolved = "postal_resolved"
	TypeGrantActivated = "grant_activated"
	TypeGrantExpired   = "grant_expired"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}

// Publisher is what producers need from the hub.
type Publisher interface {
	Publish(evt string)
}
