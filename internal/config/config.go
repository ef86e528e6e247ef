package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"splitledger/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env    string       `toml:"env"`
	HTTP   HTTPConfig   `toml:"http"`
	DB     DBConfig     `toml:"db"`
	Auth   AuthConfig   `toml:"auth"`
	Groups GroupsConfig `toml:"groups"`
	Log    LogConfig    `toml:"log"`
}

type HTTPConfig struct {
	Port           string        `toml:"port"`
	AllowedOrigins []string      `toml:"allowed_origins"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

type DBConfig struct {
	Driver          string        `toml:"driver"`
	DSN             string        `toml:"dsn"`
	Host            string        `toml:"host"`
	Port            string        `toml:"port"`
	User            string        `toml:"user"`
	Password        string        `toml:"password"`
	Name            string        `toml:"name"`
	SSLMode         string        `toml:"sslmode"`
	TimeZone        string        `toml:"timezone"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	SQLitePath      string        `toml:"sqlite_path"`
}

type AuthConfig struct {
	JWTSecret     string        `toml:"jwt_secret"`
	TokenTTL      time.Duration `toml:"token_ttl"`
	BcryptCost    int           `toml:"bcrypt_cost"`
	SkipAuth      bool          `toml:"skip_auth"`
	MockUserID    string        `toml:"mock_user_id"`
	MockUserEmail string        `toml:"mock_user_email"`
	MockUserName  string        `toml:"mock_user_name"`
}

type GroupsConfig struct {
	CacheTTL time.Duration `toml:"cache_ttl"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func defaults() Config {
	return Config{
		Env: "development",
		HTTP: HTTPConfig{
			Port:           "8080",
			AllowedOrigins: []string{"http://localhost:5173"},
			RequestTimeout: 30 * time.Second,
		},
		DB: DBConfig{
			Driver:          DriverPostgres,
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			Password:        "postgres",
			Name:            "splitledger",
			SSLMode:         "disable",
			TimeZone:        "UTC",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			SQLitePath:      "data/splitledger.db",
		},
		Auth: AuthConfig{
			TokenTTL:      48 * time.Hour,
			MockUserID:    "00000000-0000-0000-0000-000000000001",
			MockUserEmail: "dev@example.com",
			MockUserName:  "Dev User",
		},
		Groups: GroupsConfig{
			CacheTTL: time.Minute,
		},
		Log: LogConfig{
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the TOML file at path
// (or CONFIG_FILE when path is empty), then the environment. Variables from
// a .env file count as environment but never override real ones.
func Load(log logger.Logger, path string) (Config, error) {
	if err := loadDotEnv(log); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			log.Warn("config: unknown keys ignored", "path", path, "keys", fmt.Sprint(undecoded))
		}
		log.Info("config: loaded file", "path", path)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = getEnv("ENV", cfg.Env)

	cfg.HTTP.Port = getEnv("HTTP_PORT", cfg.HTTP.Port)
	cfg.HTTP.AllowedOrigins = getEnvList("HTTP_ALLOWED_ORIGINS", cfg.HTTP.AllowedOrigins)
	cfg.HTTP.RequestTimeout = getEnvDuration("HTTP_REQUEST_TIMEOUT", cfg.HTTP.RequestTimeout)

	cfg.DB.Driver = strings.ToLower(getEnv("DB_DRIVER", cfg.DB.Driver))
	cfg.DB.DSN = getEnv("DB_DSN", cfg.DB.DSN)
	cfg.DB.Host = getEnv("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = getEnv("DB_PORT", cfg.DB.Port)
	cfg.DB.User = getEnv("DB_USER", cfg.DB.User)
	cfg.DB.Password = getEnv("DB_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = getEnv("DB_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", cfg.DB.SSLMode)
	cfg.DB.TimeZone = getEnv("DB_TIMEZONE", cfg.DB.TimeZone)
	cfg.DB.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", cfg.DB.MaxOpenConns)
	cfg.DB.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", cfg.DB.MaxIdleConns)
	cfg.DB.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", cfg.DB.ConnMaxLifetime)
	cfg.DB.SQLitePath = getEnv("DB_SQLITE_PATH", cfg.DB.SQLitePath)

	cfg.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = getEnvDuration("AUTH_TOKEN_TTL", cfg.Auth.TokenTTL)
	cfg.Auth.BcryptCost = getEnvInt("AUTH_BCRYPT_COST", cfg.Auth.BcryptCost)
	cfg.Auth.SkipAuth = getEnvBool("AUTH_SKIP", cfg.Auth.SkipAuth)
	cfg.Auth.MockUserID = getEnv("AUTH_MOCK_USER_ID", cfg.Auth.MockUserID)
	cfg.Auth.MockUserEmail = getEnv("AUTH_MOCK_USER_EMAIL", cfg.Auth.MockUserEmail)
	cfg.Auth.MockUserName = getEnv("AUTH_MOCK_USER_NAME", cfg.Auth.MockUserName)

	cfg.Groups.CacheTTL = getEnvDuration("GROUPS_CACHE_TTL", cfg.Groups.CacheTTL)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

func (c Config) Validate() error {
	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("config: unsupported db driver %q", c.DB.Driver)
	}
	if c.DB.Driver == DriverSQLite && strings.TrimSpace(c.DB.SQLitePath) == "" {
		return fmt.Errorf("config: sqlite driver needs a database path")
	}
	if !c.Auth.SkipAuth && c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: AUTH_JWT_SECRET is required unless AUTH_SKIP is set")
	}
	if c.Auth.SkipAuth && strings.TrimSpace(c.Auth.MockUserID) == "" {
		return fmt.Errorf("config: AUTH_MOCK_USER_ID is required when AUTH_SKIP is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (c DBConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.TimeZone
}
