package domain

import "time"

// DefaultTitle is shown when a posting carries neither title nor job_name.
const DefaultTitle = "Delivery Driver"

type Posting struct {
	ID       string
	Title    string
	JobName  string
	City     string
	State    string // 2-letter code expected
	PostedAt *time.Time
	Platform string
}

// DisplayTitle mirrors the UI fallback chain title -> job_name -> default.
func (p Posting) DisplayTitle() string {
	switch {
	case p.Title != "":
		return p.Title
	case p.JobName != "":
		return p.JobName
	default:
		return DefaultTitle
	}
}

func (p Posting) HasLocation() bool {
	return p.City != "" && p.State != ""
}

// AgeHours is now - PostedAt in fractional hours. Callers must check PostedAt.
func (p Posting) AgeHours(now time.Time) float64 {
	if p.PostedAt == nil {
		return 0
	}
	return now.Sub(*p.PostedAt).Hours()
}

func (p Posting) IsRecent(now time.Time, thresholdHours float64) bool {
	if p.PostedAt == nil {
		return false
	}
	return p.AgeHours(now) < thresholdHours
}
