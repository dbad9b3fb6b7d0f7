package config

import (
	"os"
	"path/filepath"
	"testing"

	"gigmaps-engine/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", `
app:
  port: 9000
distribution:
  total: 8
  recent_jobs: 3
  older_jobs: 5
postal:
  aliases:
    frisco tx: Frisco
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.App.Port)
	assert.Equal(t, "instacart", cfg.App.DefaultPlatform, "unset keys keep defaults")
	assert.Equal(t, 8, cfg.Distribution.Total)
	assert.Equal(t, float64(10), cfg.Distribution.RecentThresholdHours)
	assert.Equal(t, 3, cfg.Pro.AccessDurationDays)
	assert.Len(t, cfg.Platforms, 4)
	assert.Equal(t, "Frisco", cfg.Postal.Aliases["frisco tx"])
	assert.Equal(t, "Saint Louis", cfg.Postal.Aliases["st louis"], "default aliases survive a partial map")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", `
data_source:
  url: https://file.example.co
`)
	t.Setenv(EnvSupabaseURL, "https://env.example.co")
	t.Setenv(EnvSupabaseKey, "anon-key")
	t.Setenv(EnvRedisAddr, "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.co", cfg.DataSource.URL)
	assert.Equal(t, "anon-key", cfg.DataSource.Key)
	assert.Equal(t, "redis", cfg.Store.Driver)
}

func TestLoad_BadPortEnv(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "app: {}\n")
	t.Setenv(EnvPort, "not-a-port")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadOrDefault_CorruptFileFallsBack(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "app: [this is: not valid\n")

	cfg := LoadOrDefault(path, logger.NewNop())
	assert.Equal(t, Defaults().App.Port, cfg.App.Port)
	assert.Equal(t, Defaults().Distribution, cfg.Distribution)
}

func TestLoadOrDefault_InvalidFileFallsBack(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"quotas exceed total", "distribution:\n  total: 5\n  recent_jobs: 4\n  older_jobs: 6\n"},
		{"negative quota", "distribution:\n  recent_jobs: -1\n"},
		{"zero port", "app:\n  port: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yml", tt.body)

			_, res := NormalizeAndValidate(mustLoad(t, path))
			require.False(t, res.OK(), "file should be rejected")

			cfg := LoadOrDefault(path, logger.NewNop())
			assert.Equal(t, Defaults().Distribution, cfg.Distribution)
			assert.Equal(t, Defaults().App.Port, cfg.App.Port)
			_, res = NormalizeAndValidate(cfg)
			assert.True(t, res.OK(), res.Errors)
		})
	}
}

func TestLoadOrDefault_FallbackKeepsEnvOverrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "distribution:\n  total: 0\n")
	t.Setenv(EnvSupabaseURL, "https://db.example.test/")

	cfg := LoadOrDefault(path, logger.NewNop())
	assert.Equal(t, Defaults().Distribution, cfg.Distribution)
	assert.Equal(t, "https://db.example.test", cfg.DataSource.URL, "normalized env override survives")
}

func mustLoad(t *testing.T, path string) Config {
	t.Helper()
	cfg, err := Load(path)
	require.NoError(t, err)
	return cfg
}

func TestEnsureUserConfig_WritesDefaultsWhenNoTemplate(t *testing.T) {
	dir := t.TempDir()

	p, err := EnsureUserConfig(dir, filepath.Join(dir, "missing-template.yml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yml"), p)

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, Defaults().Pro.PriceUSD, cfg.Pro.PriceUSD)
}

func TestEnsureUserConfig_CopiesTemplateOnce(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, t.TempDir(), "template.yml", "app:\n  port: 1234\n")

	p, err := EnsureUserConfig(dir, tmpl)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p, []byte("app:\n  port: 4321\n"), 0o644))

	_, err = EnsureUserConfig(dir, tmpl)
	require.NoError(t, err)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 4321, cfg.App.Port, "existing user config is not overwritten")
}

func TestNormalizeAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"quota overflow", func(c *Config) { c.Distribution.OlderJobs = 7 }, "must not exceed total"},
		{"zero threshold", func(c *Config) { c.Distribution.RecentThresholdHours = 0 }, "recent_threshold_hours"},
		{"bad slug", func(c *Config) { c.Platforms[0].Slug = "Insta/cart" }, "must match"},
		{"dup slug", func(c *Config) { c.Platforms[1].Slug = "instacart" }, "duplicated"},
		{"unknown default platform", func(c *Config) { c.App.DefaultPlatform = "uber" }, "not in platforms"},
		{"redis without addr", func(c *Config) { c.Store.Driver = "redis" }, "redis_addr"},
		{"bad driver", func(c *Config) { c.Store.Driver = "bolt" }, "store.driver"},
		{"zero access days", func(c *Config) { c.Pro.AccessDurationDays = 0 }, "access_duration_days"},
		{"zero postal concurrency", func(c *Config) { c.Postal.Concurrency = 0 }, "postal.concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			_, res := NormalizeAndValidate(cfg)
			if tt.wantErr == "" {
				assert.True(t, res.OK(), "errors: %v", res.Errors)
				return
			}
			require.False(t, res.OK())
			assert.Contains(t, joinLines(res.Errors), tt.wantErr)
		})
	}
}

func TestNormalizeAndValidate_NormalizesAliasesAndURLs(t *testing.T) {
	cfg := Defaults()
	cfg.DataSource.URL = " https://abc.supabase.co/ "
	cfg.Postal.Aliases = map[string]string{"  NYC ": " New York ", "": "x"}
	cfg.Pro.Features = []string{"a", " A ", "", "b"}

	out, res := NormalizeAndValidate(cfg)
	assert.True(t, res.OK())
	assert.Equal(t, "https://abc.supabase.co", out.DataSource.URL)
	assert.Equal(t, map[string]string{"nyc": "New York"}, out.Postal.Aliases)
	assert.Equal(t, []string{"a", "b"}, out.Pro.Features)
	assert.NotEmpty(t, res.Warnings)
}

func TestSaveAtomic_KeepsBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  port: 1111\n"), 0o644))

	cfg := Defaults()
	cfg.App.Port = 2222
	require.NoError(t, SaveAtomic(path, cfg))

	saved, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2222, saved.App.Port)

	bak, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Contains(t, string(bak), "1111")
}

func TestSaveAtomic_RejectsInvalid(t *testing.T) {
	cfg := Defaults()
	cfg.App.Port = 0
	err := SaveAtomic(filepath.Join(t.TempDir(), "config.yml"), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.port")
}
