package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables
type Config struct {
	// Server
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"APP_ENV"` // development | production
	AppBaseURL  string `mapstructure:"APP_BASE_URL"`
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	// Database
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`

	// Redis, optional. Rate limiting and the job queue fall back to in-process when empty.
	RedisURL       string `mapstructure:"REDIS_URL"`
	WorkerPoolSize int    `mapstructure:"WORKER_POOL_SIZE"`

	// Auth
	JWTSecret                  string `mapstructure:"JWT_SECRET"`
	JWTExpiresHours            int    `mapstructure:"JWT_EXPIRES_HOURS"`
	PasswordChangeTokenMinutes int    `mapstructure:"PASSWORD_CHANGE_TOKEN_MINUTES"`
	ResetTokenMinutes          int    `mapstructure:"RESET_TOKEN_MINUTES"`

	// Rate limits
	LoginRateLimit  int           `mapstructure:"LOGIN_RATE_LIMIT"`
	LoginRateWindow time.Duration `mapstructure:"LOGIN_RATE_WINDOW"`
	APIRateLimit    int           `mapstructure:"API_RATE_LIMIT"`
	APIRateWindow   time.Duration `mapstructure:"API_RATE_WINDOW"`

	// SMTP
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	MailFrom     string `mapstructure:"MAIL_FROM"`

	// Storage
	StorageDriver    string `mapstructure:"STORAGE_DRIVER"` // local | s3
	StorageLocalPath string `mapstructure:"STORAGE_LOCAL_PATH"`
	StoragePublicURL string `mapstructure:"STORAGE_PUBLIC_URL"`
	S3Endpoint       string `mapstructure:"S3_ENDPOINT"`
	S3Region         string `mapstructure:"S3_REGION"`
	S3Bucket         string `mapstructure:"S3_BUCKET"`
	S3AccessKeyID    string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretKey      string `mapstructure:"S3_SECRET_ACCESS_KEY"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`

	// Seed admin
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
}

const minSecretLen = 32

var defaults = map[string]any{
	"PORT":                          "3000",
	"APP_ENV":                       "development",
	"APP_BASE_URL":                  "http://localhost:5173",
	"CORS_ORIGINS":                  "*",
	"DATABASE_URL":                  "",
	"DB_HOST":                       "localhost",
	"DB_PORT":                       "5432",
	"DB_USER":                       "postgres",
	"DB_PASSWORD":                   "",
	"DB_NAME":                       "rental_store",
	"REDIS_URL":                     "",
	"WORKER_POOL_SIZE":              2,
	"JWT_SECRET":                    "",
	"JWT_EXPIRES_HOURS":             8,
	"PASSWORD_CHANGE_TOKEN_MINUTES": 15,
	"RESET_TOKEN_MINUTES":           10,
	"LOGIN_RATE_LIMIT":              5,
	"LOGIN_RATE_WINDOW":             "15m",
	"API_RATE_LIMIT":                100,
	"API_RATE_WINDOW":               "15m",
	"SMTP_HOST":                     "",
	"SMTP_PORT":                     587,
	"SMTP_USER":                     "",
	"SMTP_PASSWORD":                 "",
	"MAIL_FROM":                     "",
	"STORAGE_DRIVER":                "local",
	"STORAGE_LOCAL_PATH":            "./uploads",
	"STORAGE_PUBLIC_URL":            "/uploads",
	"S3_ENDPOINT":                   "",
	"S3_REGION":                     "auto",
	"S3_BUCKET":                     "",
	"S3_ACCESS_KEY_ID":              "",
	"S3_SECRET_ACCESS_KEY":          "",
	"LOG_LEVEL":                     "info",
	"LOG_FILE":                      "",
	"ADMIN_EMAIL":                   "admin@loja.com",
	"ADMIN_PASSWORD":                "",
}

// Load reads .env (if present) into the environment and then the environment into Config
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using process environment")
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that would make the API unsafe to run
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("config: JWT_SECRET is required in production")
		}
		log.Warn().Msg("JWT_SECRET not set, using an insecure development secret")
		c.JWTSecret = "development-only-secret-change-me-0123456789"
	}
	if c.IsProduction() && len(c.JWTSecret) < minSecretLen {
		return errors.New("config: JWT_SECRET must be at least 32 characters in production")
	}
	if c.StorageDriver == "s3" && c.S3Bucket == "" {
		return errors.New("config: S3_BUCKET is required when STORAGE_DRIVER=s3")
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = 1
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWTExpiresHours) * time.Hour
}

func (c *Config) PasswordChangeTokenTTL() time.Duration {
	return time.Duration(c.PasswordChangeTokenMinutes) * time.Minute
}

func (c *Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.ResetTokenMinutes) * time.Minute
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}
