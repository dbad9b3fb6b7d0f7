package selector

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"gigmaps-engine/internal/config"
	"gigmaps-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func dist() config.Distribution {
	return config.Defaults().Distribution
}

func posting(id string, age time.Duration) domain.Posting {
	t := now.Add(-age)
	return domain.Posting{ID: id, PostedAt: &t}
}

// build returns nRecent postings aged 30m,1h,1h30m,... (all under the
// 10h threshold for up to 19 items) and nOlder aged 11h,12h,...
func build(nRecent, nOlder int) []domain.Posting {
	var out []domain.Posting
	for i := 0; i < nRecent; i++ {
		out = append(out, posting(fmt.Sprintf("r%d", i+1), time.Duration(i+1)*30*time.Minute))
	}
	for i := 0; i < nOlder; i++ {
		out = append(out, posting(fmt.Sprintf("o%d", i+1), time.Duration(11+i)*time.Hour))
	}
	return out
}

func ids(r Result) []string {
	out := make([]string, len(r))
	for i, p := range r {
		out[i] = p.ID
	}
	return out
}

func TestSelect_FullQuotas(t *testing.T) {
	got := Select(build(5, 7), now, dist())
	assert.Equal(t, []string{"r1", "r2", "r3", "r4", "o1", "o2", "o3", "o4", "o5", "o6"}, ids(got))
}

func TestSelect_TwelveRecentEightOlder(t *testing.T) {
	in := build(12, 8)
	rand.New(rand.NewSource(7)).Shuffle(len(in), func(i, j int) { in[i], in[j] = in[j], in[i] })

	got := Select(in, now, dist())

	require.Len(t, got, 10)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4"}, ids(got[:4]))
	assert.Equal(t, []string{"o1", "o2", "o3", "o4", "o5", "o6"}, ids(got[4:]))
	assert.NotContains(t, ids(got), "r5")
	assert.NotContains(t, ids(got), "r6")
}

func TestSelect_FewOlderBackfillsFromRecent(t *testing.T) {
	got := Select(build(9, 2), now, dist())
	assert.Equal(t, []string{"r1", "r2", "r3", "r4", "o1", "o2", "r5", "r6", "r7", "r8"}, ids(got))
}

func TestSelect_FewRecentNeverExceedsOlderQuota(t *testing.T) {
	got := Select(build(2, 9), now, dist())
	assert.Equal(t, []string{"r1", "r2", "o1", "o2", "o3", "o4", "o5", "o6"}, ids(got))
	assert.Len(t, got, 8, "older segment is capped, no backfill from older")
}

func TestSelect_TwelveRecentAreAllRecent(t *testing.T) {
	for _, p := range build(12, 0) {
		assert.True(t, p.IsRecent(now, dist().RecentThresholdHours), p.ID)
	}
}

func TestSelect_QuotasOverTotalAreCapped(t *testing.T) {
	d := dist()
	d.Total, d.RecentJobs, d.OlderJobs = 5, 4, 6

	got := Select(build(12, 8), now, d)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4", "o1"}, ids(got))
}

func TestSelect_NegativeQuotasDoNotPanic(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Distribution)
		want   []string
	}{
		{"negative recent", func(d *config.Distribution) { d.RecentJobs = -1 },
			[]string{"o1", "o2", "o3", "o4", "o5", "o6", "r1", "r2", "r3", "r4"}},
		{"negative older", func(d *config.Distribution) { d.OlderJobs = -3 },
			[]string{"r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8", "r9", "r10"}},
		{"negative total", func(d *config.Distribution) { d.Total = -1 }, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := dist()
			tt.mutate(&d)
			var got Result
			require.NotPanics(t, func() { got = Select(build(12, 8), now, d) })
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSelect_DropsPostingsWithoutTimestamp(t *testing.T) {
	in := append(build(1, 1), domain.Posting{ID: "no-ts"})
	got := Select(in, now, dist())
	assert.Equal(t, []string{"r1", "o1"}, ids(got))
}

func TestSelect_Empty(t *testing.T) {
	assert.Empty(t, Select(nil, now, dist()))
	assert.Empty(t, Select([]domain.Posting{{ID: "x"}}, now, dist()))
}

func TestSelect_OnlyOlder(t *testing.T) {
	got := Select(build(0, 3), now, dist())
	assert.Equal(t, []string{"o1", "o2", "o3"}, ids(got))
}

func TestSelect_TiesKeepInputOrder(t *testing.T) {
	a := posting("a", time.Hour)
	b := posting("b", time.Hour)
	c := posting("c", 30*time.Minute)
	got := Select([]domain.Posting{a, b, c}, now, dist())
	assert.Equal(t, []string{"c", "a", "b"}, ids(got))
}

func TestSelect_ThresholdBoundaryIsOlder(t *testing.T) {
	got := Select([]domain.Posting{posting("edge", 10*time.Hour)}, now, dist())
	require.Len(t, got, 1)
	assert.False(t, got[0].IsRecent(now, 10))
}

func TestSelect_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 300; iter++ {
		var in []domain.Posting
		n := rng.Intn(30)
		valid, nOlder := 0, 0
		for i := 0; i < n; i++ {
			if rng.Intn(6) == 0 {
				in = append(in, domain.Posting{ID: fmt.Sprintf("p%d", i)})
				continue
			}
			valid++
			age := time.Duration(rng.Intn(40*60)) * time.Minute
			if age >= 10*time.Hour {
				nOlder++
			}
			in = append(in, posting(fmt.Sprintf("p%d", i), age))
		}

		got := Select(in, now, dist())

		assert.LessOrEqual(t, len(got), min(10, valid))
		if nRecent := valid - nOlder; nRecent >= 4 || nOlder <= 6 {
			assert.Len(t, got, min(10, valid))
		} else {
			// Short on recent with a surplus of older: the older cap holds.
			assert.Len(t, got, nRecent+6)
		}
		seen := map[string]bool{}
		for _, p := range got {
			assert.False(t, seen[p.ID], "duplicate %s", p.ID)
			seen[p.ID] = true
		}

		olderCount := 0
		for i, p := range got {
			if !p.IsRecent(now, 10) {
				olderCount++
				continue
			}
			if i >= 4 {
				assert.Equal(t, min(6, nOlder), olderCount, "backfill follows the complete older segment")
			}
		}
		assert.LessOrEqual(t, olderCount, 6)
	}
}

func TestBlurEligible(t *testing.T) {
	d := dist()
	recent := posting("r", time.Hour)
	older := posting("o", 12*time.Hour)

	tests := []struct {
		name     string
		index    int
		p        domain.Posting
		entitled bool
		want     bool
	}{
		{"index 0 recent not entitled", 0, recent, false, true},
		{"index 3 recent not entitled", 3, recent, false, true},
		{"index 4 recent not entitled", 4, recent, false, false},
		{"index 0 older not entitled", 0, older, false, false},
		{"index 0 recent entitled", 0, recent, true, false},
		{"index 3 recent entitled", 3, recent, true, false},
		{"index 4 recent entitled", 4, recent, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BlurEligible(tt.index, tt.p, now, d, tt.entitled))
		})
	}
}

func TestTimeAgo(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want string
	}{
		{10 * time.Second, "Just now"},
		{5 * time.Minute, "5m ago"},
		{59 * time.Minute, "59m ago"},
		{3 * time.Hour, "3h ago"},
		{49 * time.Hour, "2d ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeAgo(now.Add(-tt.age), now))
	}
}
