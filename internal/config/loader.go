package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "canban.yaml"

// CredentialFileName is the env-style file holding store and API credentials.
// It is looked up under the user config dir first, then the working directory.
const CredentialFileName = ".env"

// CredentialDirName is the well-known directory under $HOME.
const CredentialDirName = ".canban"

// Load returns a Config using the hierarchy:
// defaults < YAML < credential files < ENV.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path. The YAML file
// and both credential files are optional; a missing file is not an error.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	for _, path := range credentialPaths() {
		applyCredentialFile(&cfg, path)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// credentialPaths returns the credential file lookup order: the well-known
// home path first, then a project-local override.
func credentialPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, CredentialDirName, CredentialFileName))
	}
	paths = append(paths, CredentialFileName)
	return paths
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// applyCredentialFile overlays KEY=VALUE pairs from an env-style file onto
// cfg. Missing or unreadable files are skipped silently; absent credentials
// mean empty defaults, not a startup failure.
func applyCredentialFile(cfg *Config, path string) {
	creds, err := ParseCredentialFile(path)
	if err != nil {
		return
	}
	if v := creds["supabase_url"]; v != "" {
		cfg.Datastore.SupabaseURL = v
	}
	if v := creds["supabase_key"]; v != "" {
		cfg.Datastore.SupabaseKey = v
	}
	if v := creds["openai_api_key"]; v != "" {
		cfg.OpenAI.APIKey = v
	}
}

// ParseCredentialFile reads an env-style KEY=VALUE file. Keys are lowercased;
// surrounding single or double quotes on values are stripped; comment lines
// are ignored.
func ParseCredentialFile(path string) (map[string]string, error) {
	f, err := os.Open(path) //nolint:gosec // G304: fixed well-known paths
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	creds := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		val = strings.Trim(val, `"'`)
		creds[strings.ToLower(strings.TrimSpace(key))] = val
	}
	return creds, scanner.Err()
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "CANBAN_PORT")
	setString(&cfg.Server.CORSOrigin, "CANBAN_CORS_ORIGIN")
	setString(&cfg.Datastore.Driver, "CANBAN_DATASTORE_DRIVER")
	setString(&cfg.Datastore.SupabaseURL, "SUPABASE_URL")
	setString(&cfg.Datastore.SupabaseKey, "SUPABASE_KEY")
	setString(&cfg.Datastore.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Datastore.Postgres.MaxConns, "CANBAN_PG_MAX_CONNS")
	setInt32(&cfg.Datastore.Postgres.MinConns, "CANBAN_PG_MIN_CONNS")
	setDuration(&cfg.Datastore.Postgres.MaxConnLifetime, "CANBAN_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Datastore.Postgres.MaxConnIdleTime, "CANBAN_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Datastore.Postgres.HealthCheck, "CANBAN_PG_HEALTH_CHECK")
	setString(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "CANBAN_OPENAI_MODEL")
	setDuration(&cfg.OpenAI.Timeout, "CANBAN_OPENAI_TIMEOUT")
	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.NATS.Enabled, "CANBAN_NATS_ENABLED")
	setString(&cfg.Logging.Level, "CANBAN_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CANBAN_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "CANBAN_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "CANBAN_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "CANBAN_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "CANBAN_RATE_RPS")
	setInt(&cfg.Rate.Burst, "CANBAN_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "CANBAN_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "CANBAN_RATE_MAX_IDLE_TIME")
	setInt64(&cfg.Cache.MaxSizeMB, "CANBAN_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.IdempotencyTTL, "CANBAN_IDEMPOTENCY_TTL")
	setBool(&cfg.Telemetry.Enabled, "CANBAN_OTEL_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "CANBAN_OTEL_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch cfg.Datastore.Driver {
	case "supabase", "postgres":
	default:
		return fmt.Errorf("datastore.driver must be supabase or postgres, got %q", cfg.Datastore.Driver)
	}
	if cfg.Datastore.Driver == "postgres" && cfg.Datastore.Postgres.MaxConns < 1 {
		return errors.New("datastore.postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
