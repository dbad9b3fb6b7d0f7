package session

import (
	"time"

	"gigmaps-engine/internal/domain"
	"gigmaps-engine/internal/entitlement"
	"gigmaps-engine/internal/postal"
	"gigmaps-engine/internal/selector"
)

const (
	placeholderCity  = "City"
	placeholderState = "State"
)

type Listing struct {
	ID           string        `json:"id,omitempty"`
	Title        string        `json:"title"`
	City         string        `json:"city"`
	State        string        `json:"state"`
	PostalCode   string        `json:"postalCode,omitempty"`
	PostalStatus postal.Status `json:"postalStatus,omitempty"`
	PostedAt     time.Time     `json:"postedAt"`
	TimeAgo      string        `json:"timeAgo"`
	Recent       bool          `json:"recent"`
	Blurred      bool          `json:"blurred"`
}

type ProStatus struct {
	entitlement.Status
	Remaining     entitlement.Remaining `json:"remaining"`
	RemainingText string                `json:"remainingText"`
}

type View struct {
	Platform   domain.Platform `json:"platform"`
	Generation uint64          `json:"generation"`
	Loading    bool            `json:"loading"`
	Error      string          `json:"error,omitempty"`
	FetchedAt  *time.Time      `json:"fetchedAt,omitempty"`
	Listings   []Listing       `json:"listings"`
	Pro        ProStatus       `json:"pro"`
}

func proStatus(st entitlement.Status, now time.Time) ProStatus {
	rem := st.Remaining(now)
	return ProStatus{Status: st, Remaining: rem, RemainingText: rem.String()}
}

// View renders the current state. Blur is decided here, against the current
// entitlement snapshot, so an unlock takes effect without a refetch.
func (c *Controller) View(now time.Time) View {
	c.mu.Lock()
	s := c.state
	d := c.dist
	p, _ := c.platform(s.Platform)
	c.mu.Unlock()

	entitled := s.Entitlement.IsActive()
	cache := c.postal.Cache()

	v := View{
		Platform:   p,
		Generation: s.Generation,
		Loading:    s.Loading,
		Error:      s.LastError,
		Listings:   make([]Listing, 0, len(s.Postings)),
		Pro:        proStatus(s.Entitlement, now),
	}
	if !s.FetchedAt.IsZero() {
		at := s.FetchedAt
		v.FetchedAt = &at
	}

	for i, posting := range s.Postings {
		l := Listing{
			ID:       posting.ID,
			Title:    posting.DisplayTitle(),
			City:     orPlaceholder(posting.City, placeholderCity),
			State:    orPlaceholder(posting.State, placeholderState),
			PostedAt: *posting.PostedAt,
			TimeAgo:  selector.TimeAgo(*posting.PostedAt, now),
			Recent:   posting.IsRecent(now, d.RecentThresholdHours),
			Blurred:  selector.BlurEligible(i, posting, now, d, entitled),
		}
		if l.Blurred {
			l.City = ""
		} else if posting.HasLocation() {
			l.PostalCode, l.PostalStatus = cache.Get(postal.KeyFor(posting.City, posting.State))
		} else {
			l.PostalStatus = postal.StatusNotFound
		}
		v.Listings = append(v.Listings, l)
	}
	return v
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}
