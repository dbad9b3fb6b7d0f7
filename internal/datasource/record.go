package datasource

import (
	"encoding/json"
	"strings"
	"time"

	"gigmaps-engine/internal/domain"
)

// record is one row of a <platform>_jobs table. Only the columns the engine
// reads are decoded.
type record struct {
	ID       json.RawMessage `json:"id"`
	Title    *string         `json:"title"`
	JobName  *string         `json:"job_name"`
	City     *string         `json:"city"`
	State    *string         `json:"state"`
	PostedAt *string         `json:"posted_at"`
}

// Layouts PostgREST emits for timestamp and timestamptz columns.
var postedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
}

func (r record) toPosting(platform string) domain.Posting {
	return domain.Posting{
		ID:       rawID(r.ID),
		Title:    str(r.Title),
		JobName:  str(r.JobName),
		City:     str(r.City),
		State:    strings.ToUpper(str(r.State)),
		PostedAt: parsePostedAt(str(r.PostedAt)),
		Platform: platform,
	}
}

// parsePostedAt returns nil for empty or malformed input; such postings are
// dropped by the selector.
func parsePostedAt(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range postedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
