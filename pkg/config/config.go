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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	SMTP       SMTPConfig
	Mail       MailConfig
	Attendance AttendanceConfig
	Bootcamp   BootcampConfig
	Storage    StorageConfig
	RateLimit  RateLimitConfig
	Jobs       JobsConfig
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
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SMTPConfig points the notification dispatcher at a relay. When disabled, mail is logged instead.
type SMTPConfig struct {
	Enabled   bool
	Host      string
	Port      int
	User      string
	Password  string
	FromName  string
	FromEmail string
}

// MailConfig tunes bulk delivery.
type MailConfig struct {
	BatchSize     int
	BatchDelay    time.Duration
	PublicBaseURL string
}

// AttendanceConfig governs public attendance listings.
type AttendanceConfig struct {
	PublicCacheTTL time.Duration
}

// BootcampConfig governs enrollment review behaviour.
type BootcampConfig struct {
	NotifyOnStatusChange bool
	CountsCacheTTL       time.Duration
}

// StorageConfig controls where generated documents live and how downloads are signed.
type StorageConfig struct {
	DocumentsDir    string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// RateLimitConfig throttles unauthenticated write endpoints per client IP.
type RateLimitConfig struct {
	PublicPerMinute int
	PublicBurst     int
}

// JobsConfig sizes the in-process notification queue.
type JobsConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

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
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.SMTP = SMTPConfig{
		Enabled:   v.GetBool("SMTP_ENABLED"),
		Host:      v.GetString("SMTP_HOST"),
		Port:      v.GetInt("SMTP_PORT"),
		User:      v.GetString("SMTP_USER"),
		Password:  v.GetString("SMTP_PASS"),
		FromName:  v.GetString("SMTP_FROM_NAME"),
		FromEmail: v.GetString("SMTP_FROM"),
	}

	batchSize := v.GetInt("MAIL_BATCH_SIZE")
	if batchSize <= 0 {
		batchSize = 50
	}
	cfg.Mail = MailConfig{
		BatchSize:     batchSize,
		BatchDelay:    parseDuration(v.GetString("MAIL_BATCH_DELAY"), time.Second),
		PublicBaseURL: strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
	}

	cfg.Attendance = AttendanceConfig{
		PublicCacheTTL: parseDuration(v.GetString("ATTENDANCE_PUBLIC_CACHE_TTL"), 30*time.Second),
	}

	cfg.Bootcamp = BootcampConfig{
		NotifyOnStatusChange: v.GetBool("BOOTCAMP_NOTIFY_ON_STATUS_CHANGE"),
		CountsCacheTTL:       parseDuration(v.GetString("BOOTCAMP_COUNTS_CACHE_TTL"), time.Minute),
	}

	cfg.Storage = StorageConfig{
		DocumentsDir:    v.GetString("DOCUMENTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("DOCUMENTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("DOCUMENTS_SIGNED_URL_TTL"), 72*time.Hour),
	}

	cfg.RateLimit = RateLimitConfig{
		PublicPerMinute: v.GetInt("RATE_LIMIT_PUBLIC_PER_MINUTE"),
		PublicBurst:     v.GetInt("RATE_LIMIT_PUBLIC_BURST"),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		MaxRetries: v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), 5*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academy_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "academy-portal")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SMTP_ENABLED", false)
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SMTP_FROM_NAME", "Academy")
	v.SetDefault("SMTP_FROM", "no-reply@localhost")

	v.SetDefault("MAIL_BATCH_SIZE", 50)
	v.SetDefault("MAIL_BATCH_DELAY", "1s")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:3000")

	v.SetDefault("ATTENDANCE_PUBLIC_CACHE_TTL", "30s")
	v.SetDefault("BOOTCAMP_NOTIFY_ON_STATUS_CHANGE", false)
	v.SetDefault("BOOTCAMP_COUNTS_CACHE_TTL", "1m")

	v.SetDefault("DOCUMENTS_STORAGE_DIR", "./documents")
	v.SetDefault("DOCUMENTS_SIGNED_URL_SECRET", "dev_documents_secret")
	v.SetDefault("DOCUMENTS_SIGNED_URL_TTL", "72h")

	v.SetDefault("RATE_LIMIT_PUBLIC_PER_MINUTE", 30)
	v.SetDefault("RATE_LIMIT_PUBLIC_BURST", 10)

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_MAX_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "5s")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
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
