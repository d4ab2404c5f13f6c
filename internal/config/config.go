package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	ClientURL    string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Driver      string
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	AccessSecret       string
	RefreshSecret      string
	AccessTTL          time.Duration
	AccessTTLRemember  time.Duration
	RefreshTTL         time.Duration
	RefreshTTLRemember time.Duration
	Issuer             string
}

type AuthConfig struct {
	MaxFailedLogins int
	LockDuration    time.Duration
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "5000"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ClientURL:    getEnv("CLIENT_URL", "http://localhost:5173"),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver:      getEnv("STORE_DRIVER", StoreDriverPostgres),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "j_pani_paicha"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getBoolEnv("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret:       os.Getenv("JWT_ACCESS_SECRET"),
			RefreshSecret:      os.Getenv("JWT_REFRESH_SECRET"),
			AccessTTL:          getDurationEnv("JWT_ACCESS_TTL", 15*time.Minute),
			AccessTTLRemember:  getDurationEnv("JWT_ACCESS_TTL_REMEMBER", 24*time.Hour),
			RefreshTTL:         getDurationEnv("JWT_REFRESH_TTL", 7*24*time.Hour),
			RefreshTTLRemember: getDurationEnv("JWT_REFRESH_TTL_REMEMBER", 30*24*time.Hour),
			Issuer:             getEnv("JWT_ISSUER", "j-pani-paicha"),
		},
		Auth: AuthConfig{
			MaxFailedLogins: getIntEnv("AUTH_MAX_FAILED_LOGINS", 5),
			LockDuration:    getDurationEnv("AUTH_LOCK_DURATION", 15*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if c.JWT.AccessSecret == "" {
		return fmt.Errorf("%w: JWT_ACCESS_SECRET is not set", domain.ErrConfiguration)
	}
	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("%w: JWT_REFRESH_SECRET is not set", domain.ErrConfiguration)
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return fmt.Errorf("%w: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ", domain.ErrConfiguration)
	}
	if c.Database.Driver != StoreDriverPostgres && c.Database.Driver != StoreDriverMemory {
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", domain.ErrConfiguration, c.Database.Driver)
	}
	for name, ttl := range map[string]time.Duration{
		"JWT_ACCESS_TTL":           c.JWT.AccessTTL,
		"JWT_ACCESS_TTL_REMEMBER":  c.JWT.AccessTTLRemember,
		"JWT_REFRESH_TTL":          c.JWT.RefreshTTL,
		"JWT_REFRESH_TTL_REMEMBER": c.JWT.RefreshTTLRemember,
	} {
		if ttl <= 0 {
			return fmt.Errorf("%w: %s must be positive", domain.ErrConfiguration, name)
		}
	}
	return nil
}

// IsProduction controls cookie security attributes and log encoding.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// TTLs returns the access and refresh lifetimes for a remember-me choice.
func (c *JWTConfig) TTLs(rememberMe bool) (access, refresh time.Duration) {
	if rememberMe {
		return c.AccessTTLRemember, c.RefreshTTLRemember
	}
	return c.AccessTTL, c.RefreshTTL
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dsnValue(c.Host), dsnValue(c.Port), dsnValue(c.User),
		dsnValue(c.Password), dsnValue(c.DBName), dsnValue(c.SSLMode),
	)
}

// dsnValue quotes v for the libpq key=value format when it is empty or holds
// a space, quote or backslash.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// URL is the DSN in URL form, as golang-migrate expects. Credentials are
// percent-encoded.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ParseDuration extends time.ParseDuration with a whole-day "d" suffix ("7d", "30d").
func ParseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
