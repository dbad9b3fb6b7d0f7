package config

import (
	"fmt"
	"regexp"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Platform slugs become part of a REST table path.
var slugRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// NormalizeAndValidate returns a normalized copy plus the validation report.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Pro.Features = trimList(out.Pro.Features)
	out.DataSource.URL = strings.TrimRight(strings.TrimSpace(out.DataSource.URL), "/")
	out.Postal.BaseURL = strings.TrimRight(strings.TrimSpace(out.Postal.BaseURL), "/")
	out.App.DefaultPlatform = strings.TrimSpace(out.App.DefaultPlatform)
	out.Store.Driver = strings.ToLower(strings.TrimSpace(out.Store.Driver))

	if len(out.Postal.Aliases) > 0 {
		aliases := make(map[string]string, len(out.Postal.Aliases))
		for k, v := range out.Postal.Aliases {
			k = strings.ToLower(strings.TrimSpace(k))
			v = strings.TrimSpace(v)
			if k == "" || v == "" {
				res.addWarn("postal.aliases: dropping empty entry %q -> %q", k, v)
				continue
			}
			aliases[k] = v
		}
		out.Postal.Aliases = aliases
	}

	// ---- Validation rules ----

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	if out.App.RefreshSeconds < 0 {
		res.addErr("app.refresh_seconds must be >= 0")
	} else if out.App.RefreshSeconds > 0 && out.App.RefreshSeconds < 30 {
		res.addWarn("app.refresh_seconds is very low (%d) and may hit data source rate limits.", out.App.RefreshSeconds)
	}

	// platforms
	if len(out.Platforms) == 0 {
		res.addErr("platforms must list at least one platform")
	}
	seen := map[string]bool{}
	for i, p := range out.Platforms {
		if !slugRe.MatchString(p.Slug) {
			res.addErr("platforms[%d].slug %q must match [a-z0-9_]+", i, p.Slug)
			continue
		}
		if seen[p.Slug] {
			res.addErr("platforms[%d].slug %q is duplicated", i, p.Slug)
		}
		seen[p.Slug] = true
	}
	if out.App.DefaultPlatform != "" && !seen[out.App.DefaultPlatform] {
		res.addErr("app.default_platform %q is not in platforms", out.App.DefaultPlatform)
	}

	// distribution
	d := out.Distribution
	if d.Total <= 0 {
		res.addErr("distribution.total must be > 0")
	}
	if d.RecentJobs < 0 || d.OlderJobs < 0 {
		res.addErr("distribution.recent_jobs and distribution.older_jobs must be >= 0")
	}
	if d.RecentJobs+d.OlderJobs > d.Total {
		res.addErr("distribution.recent_jobs + older_jobs (%d) must not exceed total (%d)", d.RecentJobs+d.OlderJobs, d.Total)
	}
	if d.RecentThresholdHours <= 0 {
		res.addErr("distribution.recent_threshold_hours must be > 0")
	}

	// data source
	if out.DataSource.Limit <= 0 {
		res.addErr("data_source.limit must be > 0")
	} else if out.DataSource.Limit < d.Total {
		res.addWarn("data_source.limit (%d) is below distribution.total (%d); lists will be short.", out.DataSource.Limit, d.Total)
	}
	if out.DataSource.URL == "" {
		res.addWarn("data_source.url is empty; every platform will show no jobs.")
	}

	// pro
	if out.Pro.AccessDurationDays <= 0 {
		res.addErr("pro.access_duration_days must be > 0")
	}
	if out.Pro.MockPaymentDelayMS < 0 {
		res.addErr("pro.mock_payment_delay_ms must be >= 0")
	}
	if out.Pro.PriceUSD < 0 {
		res.addErr("pro.price_usd must be >= 0")
	}
	if strings.TrimSpace(out.Pro.License.ProductID) == "" {
		res.addWarn("pro.license.product_id is empty; license activation will be rejected upstream.")
	}

	// postal
	if out.Postal.TimeoutSeconds <= 0 {
		res.addErr("postal.timeout_seconds must be > 0")
	}
	if out.Postal.Concurrency < 1 {
		res.addErr("postal.concurrency must be >= 1")
	}
	if out.Postal.RequestsPerSecond <= 0 {
		res.addErr("postal.requests_per_second must be > 0")
	}
	if out.Postal.BaseURL == "" {
		res.addErr("postal.base_url is required")
	}

	// contact
	if out.Contact.FormURL == "" && out.Contact.NotifyURL == "" {
		res.addWarn("contact.form_url and contact.notify_url are both empty; contact submissions go nowhere.")
	}

	// store
	switch out.Store.Driver {
	case "sqlite":
	case "redis":
		if strings.TrimSpace(out.Store.RedisAddr) == "" {
			res.addErr("store.redis_addr is required when store.driver=redis")
		}
	default:
		res.addErr("store.driver must be sqlite or redis, got %q", out.Store.Driver)
	}

	return out, res
}
