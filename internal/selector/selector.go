// Package selector builds the fixed-size job list shown for one platform:
// a Pro-gated block of the freshest recent postings, then the freshest older
// postings, backfilled from further recent postings when older ones run out.
package selector

import (
	"sort"
	"time"

	"gigmaps-engine/internal/config"
	"gigmaps-engine/internal/domain"
)

// Result is ordered: segment A (recent, gated), segment B (older, free),
// segment C (recent backfill). Length is min(Total, valid postings).
type Result []domain.Posting

// Select is pure over its inputs. Postings without PostedAt are dropped.
func Select(postings []domain.Posting, now time.Time, d config.Distribution) Result {
	valid := make([]domain.Posting, 0, len(postings))
	for _, p := range postings {
		if p.PostedAt != nil {
			valid = append(valid, p)
		}
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].PostedAt.After(*valid[j].PostedAt)
	})

	var recent, older []domain.Posting
	for _, p := range valid {
		if p.IsRecent(now, d.RecentThresholdHours) {
			recent = append(recent, p)
		} else {
			older = append(older, p)
		}
	}

	// Quotas come from user config; a bad file must not panic or overfill.
	total := max(d.Total, 0)
	recentQuota := min(max(d.RecentJobs, 0), total)
	olderQuota := min(max(d.OlderJobs, 0), total-recentQuota)

	a := recent[:min(recentQuota, len(recent))]
	b := older[:min(olderQuota, len(older))]

	out := make(Result, 0, total)
	out = append(out, a...)
	out = append(out, b...)

	// Backfill only from recent entries not already in A.
	if remaining := total - len(a) - len(b); remaining > 0 && len(recent) > recentQuota {
		rest := recent[recentQuota:]
		out = append(out, rest[:min(remaining, len(rest))]...)
	}
	return out
}

// BlurEligible reports whether the listing at index i has its location
// withheld. It is evaluated per render because entitlement can change
// without a refetch.
func BlurEligible(i int, p domain.Posting, now time.Time, d config.Distribution, entitled bool) bool {
	return i < d.RecentJobs && p.IsRecent(now, d.RecentThresholdHours) && !entitled
}
