package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Ticket backends supported by the authorization engine.
const (
	TicketBackendRedis  = "redis"
	TicketBackendMemory = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database       DatabaseConfig
	Redis          RedisConfig
	JWT            JWTConfig
	CORS           CORSConfig
	Log            LogConfig
	Authorizations AuthorizationsConfig
	Agent          AgentConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AuthorizationsConfig tunes the dual-control workflow.
type AuthorizationsConfig struct {
	PollInterval          time.Duration
	SeenCacheSize         int
	AdminBypass           bool
	ApprovalPermission    string
	SuperUserEmail        string
	SuperUserPasswordHash string
	SuperUserName         string
	TicketBackend         string
	AuditWorkers          int
	AuditRetries          int
}

// AgentConfig configures the standalone delivery agent binary.
type AgentConfig struct {
	OperatorID string
	RunOnce    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	seen := v.GetInt("AUTHZ_SEEN_CACHE_SIZE")
	if seen <= 0 {
		seen = 1024
	}
	backend := strings.ToLower(strings.TrimSpace(v.GetString("AUTHZ_TICKET_BACKEND")))
	if backend != TicketBackendMemory {
		backend = TicketBackendRedis
	}
	cfg.Authorizations = AuthorizationsConfig{
		PollInterval:          parseDuration(v.GetString("AUTHZ_POLL_INTERVAL"), 2*time.Second),
		SeenCacheSize:         seen,
		AdminBypass:           v.GetBool("AUTHZ_ADMIN_BYPASS"),
		ApprovalPermission:    strings.TrimSpace(v.GetString("AUTHZ_APPROVAL_PERMISSION")),
		SuperUserEmail:        strings.ToLower(strings.TrimSpace(v.GetString("AUTHZ_SUPERUSER_EMAIL"))),
		SuperUserPasswordHash: v.GetString("AUTHZ_SUPERUSER_PASSWORD_HASH"),
		SuperUserName:         v.GetString("AUTHZ_SUPERUSER_NAME"),
		TicketBackend:         backend,
		AuditWorkers:          v.GetInt("AUTHZ_AUDIT_WORKERS"),
		AuditRetries:          v.GetInt("AUTHZ_AUDIT_RETRIES"),
	}

	cfg.Agent = AgentConfig{
		OperatorID: v.GetString("AGENT_OPERATOR_ID"),
		RunOnce:    v.GetBool("AGENT_RUN_ONCE"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "backoffice")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "backoffice-authz")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("AUTHZ_POLL_INTERVAL", "2s")
	v.SetDefault("AUTHZ_SEEN_CACHE_SIZE", 1024)
	v.SetDefault("AUTHZ_ADMIN_BYPASS", true)
	v.SetDefault("AUTHZ_APPROVAL_PERMISSION", "ACTION_EDIT")
	v.SetDefault("AUTHZ_SUPERUSER_EMAIL", "")
	v.SetDefault("AUTHZ_SUPERUSER_PASSWORD_HASH", "")
	v.SetDefault("AUTHZ_SUPERUSER_NAME", "Platform Master")
	v.SetDefault("AUTHZ_TICKET_BACKEND", TicketBackendRedis)
	v.SetDefault("AUTHZ_AUDIT_WORKERS", 1)
	v.SetDefault("AUTHZ_AUDIT_RETRIES", 3)

	v.SetDefault("AGENT_OPERATOR_ID", "")
	v.SetDefault("AGENT_RUN_ONCE", false)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
