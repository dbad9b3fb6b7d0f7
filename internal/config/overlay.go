// config/overlay.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override config.yml. The Supabase pair keeps
// credentials out of the file that the UI can read back over /config.
const (
	EnvDataDir          = "GIGMAPS_DATA_DIR"
	EnvSupabaseURL      = "GIGMAPS_SUPABASE_URL"
	EnvSupabaseKey      = "GIGMAPS_SUPABASE_KEY"
	EnvLicenseProductID = "GIGMAPS_LICENSE_PRODUCT_ID"
	EnvLogLevel         = "GIGMAPS_LOG_LEVEL"
	EnvRedisAddr        = "GIGMAPS_REDIS_ADDR"
	EnvPort             = "GIGMAPS_PORT"
)

// LoadEnvFiles loads ENV_FILE if set, otherwise .env.local then .env.
// Missing files are not an error.
func LoadEnvFiles() error {
	if f := os.Getenv("ENV_FILE"); f != "" {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
		return nil
	}
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func ApplyEnv(cfg *Config) error {
	if v := env(EnvDataDir); v != "" {
		cfg.App.DataDir = v
	}
	if v := env(EnvSupabaseURL); v != "" {
		cfg.DataSource.URL = v
	}
	if v := env(EnvSupabaseKey); v != "" {
		cfg.DataSource.Key = v
	}
	if v := env(EnvLicenseProductID); v != "" {
		cfg.Pro.License.ProductID = v
	}
	if v := env(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := env(EnvRedisAddr); v != "" {
		cfg.Store.RedisAddr = v
		cfg.Store.Driver = "redis"
	}
	if v := env(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		cfg.App.Port = port
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
