// Package session holds the engine's application state and the single
// reducer every transition goes through.
package session

import (
	"time"

	"gigmaps-engine/internal/entitlement"
	"gigmaps-engine/internal/selector"
)

type State struct {
	Platform    string
	Generation  uint64
	Loading     bool
	Postings    selector.Result
	LastError   string
	FetchedAt   time.Time
	Entitlement entitlement.Status
}

type Event interface {
	isEvent()
}

// PlatformChanged starts a new fetch generation.
type PlatformChanged struct {
	Platform string
}

// FetchCompleted carries the tag of the request it answers.
type FetchCompleted struct {
	Platform   string
	Generation uint64
	Postings   selector.Result
	Err        error
	At         time.Time
}

type EntitlementChanged struct {
	Status entitlement.Status
}

func (PlatformChanged) isEvent()    {}
func (FetchCompleted) isEvent()     {}
func (EntitlementChanged) isEvent() {}

// Reduce is pure. A FetchCompleted whose platform or generation no longer
// matches is dropped.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case PlatformChanged:
		s.Platform = ev.Platform
		s.Generation++
		s.Loading = true
	case FetchCompleted:
		if !Current(s, ev) {
			return s
		}
		s.Loading = false
		s.FetchedAt = ev.At
		if ev.Err != nil {
			s.Postings = nil
			s.LastError = ev.Err.Error()
		} else {
			s.Postings = ev.Postings
			s.LastError = ""
		}
	case EntitlementChanged:
		s.Entitlement = ev.Status
	}
	return s
}

// Current reports whether a fetch result still belongs to the displayed platform.
func Current(s State, ev FetchCompleted) bool {
	return ev.Platform == s.Platform && ev.Generation == s.Generation
}
