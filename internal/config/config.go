package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Attendance AttendanceConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	BaseURL        string
	AllowedOrigins []string
}

type AttendanceConfig struct {
	// StaffJWTSecret signs bearer tokens for the instructor endpoints
	// (rotate, deactivate, QR display, roster).
	StaffJWTSecret string
	// TokenFreshness is the window within which a rotated token is accepted.
	// The QR display re-issues every few seconds, so this stays tight.
	TokenFreshness time.Duration
	// SessionTTL is the claim-session validity window. Shorter than typing
	// credentials takes in isolation; the client extends it by re-claiming
	// while the form is open.
	SessionTTL time.Duration
	// DeviceCookieTTL is the lifetime of the server-issued device_id cookie.
	DeviceCookieTTL time.Duration
	// SweepInterval is how often expired claim sessions are deleted.
	SweepInterval time.Duration
	// SweepGrace is how long past expiry a session row is retained before
	// the sweeper removes it. Conservative: the functional check is the
	// expiry comparison, the sweep is only hygiene.
	SweepGrace time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	staffSecret := getEnv("STAFF_JWT_SECRET", "")
	if staffSecret == "" {
		return nil, fmt.Errorf("STAFF_JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "rollcall"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
			AllowedOrigins: parseAllowedOrigins(env),
		},
		Attendance: AttendanceConfig{
			StaffJWTSecret:  staffSecret,
			TokenFreshness:  getEnvAsDuration("TOKEN_FRESHNESS", 5*time.Second),
			SessionTTL:      getEnvAsDuration("CLAIM_SESSION_TTL", 20*time.Second),
			DeviceCookieTTL: getEnvAsDuration("DEVICE_COOKIE_TTL", 365*24*time.Hour),
			SweepInterval:   getEnvAsDuration("SESSION_SWEEP_INTERVAL", 1*time.Hour),
			SweepGrace:      getEnvAsDuration("SESSION_SWEEP_GRACE", 24*time.Hour),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateStaffSecret(staffSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateStaffSecret enforces minimum strength for the staff JWT secret
func validateStaffSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("STAFF_JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("STAFF_JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{}
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
