// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gigmaps-engine/internal/domain"
	"gigmaps-engine/internal/logger"

	"gopkg.in/yaml.v3"
)

type Distribution struct {
	Total                int     `yaml:"total" json:"total"`
	RecentJobs           int     `yaml:"recent_jobs" json:"recent_jobs"` // Pro-gated, younger than threshold
	OlderJobs            int     `yaml:"older_jobs" json:"older_jobs"`   // free
	RecentThresholdHours float64 `yaml:"recent_threshold_hours" json:"recent_threshold_hours"`
}

type DataSource struct {
	URL            string `yaml:"url" json:"url"`
	Key            string `yaml:"key" json:"-"` // set via env or keyring, never echoed
	Limit          int    `yaml:"limit" json:"limit"`
	KeyringAccount string `yaml:"keyring_account" json:"keyring_account"`
}

type License struct {
	VerifyURL string `yaml:"verify_url" json:"verify_url"`
	ProductID string `yaml:"product_id" json:"product_id"`
}

type RefundPolicy struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Description string `yaml:"description" json:"description"`
}

type Pro struct {
	PriceUSD           float64      `yaml:"price_usd" json:"price_usd"`
	AccessDurationDays int          `yaml:"access_duration_days" json:"access_duration_days"`
	MockPaymentDelayMS int          `yaml:"mock_payment_delay_ms" json:"mock_payment_delay_ms"`
	RefundPolicy       RefundPolicy `yaml:"refund_policy" json:"refund_policy"`
	Features           []string     `yaml:"features" json:"features"`
	License            License      `yaml:"license" json:"license"`
}

type Postal struct {
	BaseURL           string            `yaml:"base_url" json:"base_url"`
	TimeoutSeconds    int               `yaml:"timeout_seconds" json:"timeout_seconds"`
	Concurrency       int               `yaml:"concurrency" json:"concurrency"`
	RequestsPerSecond float64           `yaml:"requests_per_second" json:"requests_per_second"`
	Aliases           map[string]string `yaml:"aliases" json:"aliases"`
}

type Contact struct {
	FormURL   string `yaml:"form_url" json:"form_url"`     // structured JSON relay
	NotifyURL string `yaml:"notify_url" json:"notify_url"` // plain-text notification relay
}

type Store struct {
	Driver        string `yaml:"driver" json:"driver"` // sqlite | redis
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"-"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix" json:"redis_prefix"`
}

type Config struct {
	App struct {
		Port            int    `yaml:"port" json:"port"`
		DataDir         string `yaml:"data_dir" json:"data_dir"`
		DefaultPlatform string `yaml:"default_platform" json:"default_platform"`
		RefreshSeconds  int    `yaml:"refresh_seconds" json:"refresh_seconds"` // 0 disables
	} `yaml:"app" json:"app"`

	DataSource   DataSource        `yaml:"data_source" json:"data_source"`
	Platforms    []domain.Platform `yaml:"platforms" json:"platforms"`
	Distribution Distribution      `yaml:"distribution" json:"distribution"`
	Pro          Pro               `yaml:"pro" json:"pro"`
	Postal       Postal            `yaml:"postal" json:"postal"`
	Contact      Contact           `yaml:"contact" json:"contact"`
	Store        Store             `yaml:"store" json:"store"`
	Logging      logger.Config     `yaml:"logging" json:"logging"`
}

func Defaults() Config {
	var cfg Config
	cfg.App.Port = 38472
	cfg.App.DefaultPlatform = "instacart"

	cfg.DataSource.Limit = 100
	cfg.DataSource.KeyringAccount = "gigmaps:supabase"

	cfg.Platforms = []domain.Platform{
		{Slug: "instacart", Name: "Instacart"},
		{Slug: "doordash", Name: "DoorDash"},
		{Slug: "caviar", Name: "Caviar"},
		{Slug: "spark_delivery", Name: "Spark Delivery"},
	}

	cfg.Distribution = Distribution{
		Total:                10,
		RecentJobs:           4,
		OlderJobs:            6,
		RecentThresholdHours: 10,
	}

	cfg.Pro = Pro{
		PriceUSD:           19.99,
		AccessDurationDays: 3,
		MockPaymentDelayMS: 1500,
		RefundPolicy: RefundPolicy{
			Enabled:     true,
			Description: "Full refund if no gigs found in your zip code",
		},
		Features: []string{
			"See all fresh job locations instantly",
			"Access to all zip codes and city data",
			"3-day unlimited access",
			"No gigs in your area? Full refund, no risk",
		},
		License: License{VerifyURL: "https://api.gumroad.com/v2/licenses/verify"},
	}

	cfg.Postal = Postal{
		BaseURL:           "https://api.zippopotam.us",
		TimeoutSeconds:    3,
		Concurrency:       1,
		RequestsPerSecond: 4,
		Aliases:           DefaultCityAliases(),
	}

	cfg.Store = Store{Driver: "sqlite", RedisPrefix: "gigmaps:"}
	cfg.Logging = logger.Config{Level: "info"}
	return cfg
}

// DefaultCityAliases rewrites alternate spellings the geocoder does not know.
// Keys are matched case-insensitively against the listing's city.
func DefaultCityAliases() map[string]string {
	return map[string]string{
		"st louis":      "Saint Louis",
		"st. louis":     "Saint Louis",
		"st paul":       "Saint Paul",
		"st. paul":      "Saint Paul",
		"st petersburg": "Saint Petersburg",
		"ft worth":      "Fort Worth",
		"ft. worth":     "Fort Worth",
		"ft lauderdale": "Fort Lauderdale",
		"nyc":           "New York",
		"new york city": "New York",
		"la":            "Los Angeles",
		"philly":        "Philadelphia",
		"vegas":         "Las Vegas",
	}
}

// Load decodes the YAML file over Defaults(), so keys missing from the file
// keep their default values. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Defaults(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault never fails: a missing, malformed or invalid file is logged
// and the engine continues on defaults plus environment overrides. The
// returned config is always normalized.
func LoadOrDefault(path string, log logger.Logger) Config {
	cfg, err := Load(path)
	if err != nil {
		log.Warn("config unreadable, using defaults", logger.String("path", path), logger.Error(err))
		return fallback(log)
	}
	out, res := NormalizeAndValidate(cfg)
	for _, w := range res.Warnings {
		log.Warn("config warning", logger.String("detail", w))
	}
	if !res.OK() {
		for _, e := range res.Errors {
			log.Error("config error", logger.String("detail", e))
		}
		log.Warn("config invalid, using defaults", logger.String("path", path))
		return fallback(log)
	}
	return out
}

func fallback(log logger.Logger) Config {
	cfg := Defaults()
	if err := ApplyEnv(&cfg); err != nil {
		log.Warn("env overlay failed", logger.Error(err))
	}
	out, res := NormalizeAndValidate(cfg)
	if !res.OK() {
		// An env override broke the defaults; drop the overlay.
		out, _ = NormalizeAndValidate(Defaults())
	}
	return out
}

func (c Config) Platform(slug string) (domain.Platform, bool) {
	for _, p := range c.Platforms {
		if p.Slug == slug {
			return p, true
		}
	}
	return domain.Platform{}, false
}
