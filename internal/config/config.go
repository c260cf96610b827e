package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	legacyScheme   = "postgres://"
	standardScheme = "postgresql://"

	defaultSecretKey = "your_secret_key_change_in_production"
)

// Features switches optional parts of the server on or off.
type Features struct {
	DebugEndpoints bool
	MLStubs        bool
	StrictImports  bool
}

// Config holds runtime configuration loaded from environment variables.
// It is built once at startup and passed by value.
type Config struct {
	Port        string
	DatabaseURL string
	SecretKey   string
	Environment string
	CorsOrigins []string

	SessionDir      string
	SessionLifetime time.Duration

	GeocoderURL       string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration
	GeocoderCacheTTL  time.Duration
	GeocoderRegion    string

	MitigationBackend string
	IUCNCSVPath       string

	JWTIssuer string
	TokenTTL  time.Duration

	LogDir           string
	LogLevel         string
	LogRetentionDays int

	Features Features
}

func Load() Config {
	env := envOr("FLASK_ENV", envOr("APP_ENV", "development"))
	logLevel := "debug"
	if env == "production" {
		logLevel = "info"
	}
	return Config{
		Port:              envOr("PORT", "5001"),
		DatabaseURL:       DatabaseURL(),
		SecretKey:         envOr("SECRET_KEY", defaultSecretKey),
		Environment:       env,
		CorsOrigins:       parseCSV(envOr("CORS_ORIGINS", "http://localhost:3000")),
		SessionDir:        envOr("SESSION_DIR", "./sessions"),
		SessionLifetime:   time.Duration(envOrInt("SESSION_LIFETIME_SECONDS", 900)) * time.Second,
		GeocoderURL:       envOr("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
		GeocoderUserAgent: envOr("GEOCODER_USER_AGENT", "BiodivProScopeApp/1.0"),
		GeocoderTimeout:   time.Duration(envOrInt("GEOCODER_TIMEOUT_SECONDS", 10)) * time.Second,
		GeocoderCacheTTL:  time.Duration(envOrInt("GEOCODER_CACHE_TTL_SECONDS", 3600)) * time.Second,
		GeocoderRegion:    envOr("GEOCODER_REGION", "New Jersey"),
		MitigationBackend: strings.ToLower(envOr("MITIGATION_BACKEND", "rules")),
		IUCNCSVPath:       envOr("IUCN_CSV_PATH", ""),
		JWTIssuer:         envOr("JWT_ISSUER", "biodivscope"),
		TokenTTL:          time.Duration(envOrInt("TOKEN_TTL_SECONDS", 14400)) * time.Second,
		LogDir:            envOr("LOG_DIR", "storage/logs"),
		LogLevel:          envOr("LOG_LEVEL", logLevel),
		LogRetentionDays:  envOrInt("LOG_RETENTION_DAYS", 7),
		Features: Features{
			DebugEndpoints: envOrBool("ENABLE_DEBUG_ENDPOINTS", false),
			MLStubs:        envOrBool("ENABLE_ML_STUBS", true),
			StrictImports:  envOrBool("STRICT_IMPORTS", false),
		},
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Debug() bool {
	return c.Environment == "development"
}

func (c Config) UsesDefaultSecret() bool {
	return c.SecretKey == defaultSecretKey
}

// DatabaseURL resolves the connection string from DATABASE_URL, falling back
// to the discrete DB_* variables.
func DatabaseURL() string {
	if raw := envOr("DATABASE_URL", ""); raw != "" {
		return NormalizeDatabaseURL(raw)
	}
	return BuildDatabaseURL(
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_USER", "postgres"),
		envOr("DB_PASSWORD", ""),
		envOr("DB_NAME", "postgres"),
		envOr("DB_SSLMODE", "disable"),
	)
}

// NormalizeDatabaseURL rewrites the legacy postgres:// prefix to postgresql://.
func NormalizeDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, legacyScheme) {
		return standardScheme + strings.TrimPrefix(raw, legacyScheme)
	}
	return raw
}

func BuildDatabaseURL(host, port, user, password, name, sslmode string) string {
	u := url.URL{
		Scheme: "postgresql",
		Host:   host + ":" + port,
		Path:   "/" + name,
	}
	if password != "" {
		u.User = url.UserPassword(user, password)
	} else {
		u.User = url.User(user)
	}
	if sslmode != "" {
		u.RawQuery = url.Values{"sslmode": []string{sslmode}}.Encode()
	}
	return u.String()
}

// Validate reports configuration that cannot work at all.
func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	switch c.MitigationBackend {
	case "rules", "none":
	default:
		return fmt.Errorf("unknown MITIGATION_BACKEND %q", c.MitigationBackend)
	}
	return nil
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
