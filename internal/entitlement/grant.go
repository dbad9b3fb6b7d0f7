// Package entitlement owns the Pro-access window: loading, expiring and
// activating the locally persisted grant.
//
// The grant lives in client-controlled storage and its expiry is recomputed
// locally on every load. This is a soft paywall, not a security boundary, and
// a tampered record is not treated as an error.
package entitlement

import (
	"fmt"
	"time"
)

// StorageKey is the KV key holding the serialized grant.
const StorageKey = "gigmaps-pro-access"

type Source string

const (
	SourceMockPayment Source = "mock-payment"
	SourceLicenseKey  Source = "license-key"
)

// Grant is one Pro-access window. PurchasedAt is nil only for legacy records
// that stored nothing but an expiry.
type Grant struct {
	Source      Source     `json:"source"`
	PurchasedAt *time.Time `json:"purchasedAt,omitempty"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	Username    string     `json:"username,omitempty"`
	LicenseKey  string     `json:"licenseKey,omitempty"`
}

// effectiveExpiry recomputes the expiry from PurchasedAt, falling back to the
// stored value only when PurchasedAt is missing.
func (g Grant) effectiveExpiry(d time.Duration) (time.Time, bool) {
	if g.PurchasedAt != nil && !g.PurchasedAt.IsZero() {
		return g.PurchasedAt.Add(d), true
	}
	if !g.ExpiresAt.IsZero() {
		return g.ExpiresAt, true
	}
	return time.Time{}, false
}

type State string

const (
	StateNoGrant State = "no_grant"
	StateActive  State = "active"
)

// Status is the snapshot handed to the session and the UI.
type Status struct {
	State     State      `json:"state"`
	Source    Source     `json:"source,omitempty"`
	Username  string     `json:"username,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (s Status) IsActive() bool {
	return s.State == StateActive
}

func noGrant() Status {
	return Status{State: StateNoGrant}
}

func activeStatus(g Grant) Status {
	exp := g.ExpiresAt
	return Status{
		State:     StateActive,
		Source:    g.Source,
		Username:  g.Username,
		ExpiresAt: &exp,
	}
}

// Remaining is the time left on a grant, truncated to whole minutes.
type Remaining struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Expired bool `json:"expired"`
}

func (r Remaining) String() string {
	if r.Expired {
		return "Expired"
	}
	return fmt.Sprintf("%dd %dh %dm", r.Days, r.Hours, r.Minutes)
}

// TimeRemaining never goes negative: at or past ExpiresAt it is Expired.
func TimeRemaining(g Grant, now time.Time) Remaining {
	return remainingUntil(g.ExpiresAt, now)
}

// Remaining reports the live countdown for an Active status.
func (s Status) Remaining(now time.Time) Remaining {
	if !s.IsActive() || s.ExpiresAt == nil {
		return Remaining{Expired: true}
	}
	return remainingUntil(*s.ExpiresAt, now)
}

func remainingUntil(expiresAt, now time.Time) Remaining {
	left := expiresAt.Sub(now)
	if left <= 0 {
		return Remaining{Expired: true}
	}
	mins := int(left / time.Minute)
	return Remaining{
		Days:    mins / (24 * 60),
		Hours:   (mins / 60) % 24,
		Minutes: mins % 60,
	}
}
