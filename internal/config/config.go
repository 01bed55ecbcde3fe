package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Store       StoreConfig
	JWT         JWTConfig
	Storage     StorageConfig
	Worker      WorkerConfig
	Redis       RedisConfig
	Crypto      CryptoConfig
	Invitations InvitationConfig
	Claims      ClaimsConfig
	Email       EmailConfig
	Admin       AdminConfig
	RateLimit   RateLimitConfig
}

type CryptoConfig struct {
	// PrivateKey is a base64-encoded PEM RSA key. When set, identity tokens
	// are RS256 instead of HS256.
	PrivateKey string
}

type ServerConfig struct {
	Host      string
	Port      int
	PublicURL string
	// AppURL is the web client that hosts the invitation landing page.
	AppURL string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	LogLevel string
}

// StoreConfig selects the document store backend: "postgres" or "memory".
type StoreConfig struct {
	Driver string
}

type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type StorageConfig struct {
	Provider string // s3 or none
	S3       S3Config
}

type S3Config struct {
	BucketName string `env:"S3_BUCKET_NAME" required:"true"`
	Endpoint   string `env:"S3_ENDPOINT"`
	Region     string `env:"S3_REGION" required:"true"`
	AccessKey  string `env:"S3_ACCESS_KEY" required:"true"`
	SecretKey  string `env:"S3_SECRET_KEY" required:"true"`
}

type WorkerConfig struct {
	Concurrency int
}

type RedisConfig struct {
	Addr     string
	Password string
	Username string
	DB       int
}

type InvitationConfig struct {
	TTL time.Duration
	// ExpirySweepCron is a standard 5-field cron spec for the expiry sweep.
	ExpirySweepCron string
}

type ClaimsConfig struct {
	MaxBytes  int
	SoftRatio float64
	KeyPrefix string
}

type EmailConfig struct {
	APIURL   string
	APIToken string
	From     string
	// PerRecipientLimit caps emails to one address within PerRecipientWindow.
	PerRecipientLimit  int
	PerRecipientWindow time.Duration
}

type AdminConfig struct {
	Enabled bool
	// UserIDs may open the admin panel.
	UserIDs []string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

var (
	config *Config
	once   sync.Once
)

// GetConfig returns the singleton config instance, loaded from the
// environment on first use.
func GetConfig() *Config {
	once.Do(func() {
		cfg, err := Load()
		if err != nil {
			cfg = LoadTestConfig()
		}
		config = cfg
	})
	return config
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "localhost"),
			Port:      getEnvAsInt("SERVER_PORT", 8080),
			PublicURL: getEnv("PUBLIC_URL", "http://localhost:8080"),
			AppURL:    getEnv("APP_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Name:     getEnv("POSTGRES_DB", "brandhub"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			LogLevel: getEnv("POSTGRES_LOG_LEVEL", "warn"),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "postgres"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
			Issuer: getEnv("JWT_ISSUER", "brandhub"),
			TTL:    getEnvAsDuration("JWT_TTL", time.Hour),
		},
		Storage: StorageConfig{
			Provider: getEnv("STORAGE_PROVIDER", "s3"),
			S3: S3Config{
				BucketName: getEnv("S3_BUCKET_NAME", ""),
				Endpoint:   getEnv("S3_ENDPOINT", ""),
				Region:     getEnv("S3_REGION", ""),
				AccessKey:  getEnv("S3_ACCESS_KEY", ""),
				SecretKey:  getEnv("S3_SECRET_KEY", ""),
			},
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 5),
		},
		Redis: RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", getEnv("REDIS_HOST", "localhost"), getEnvAsInt("REDIS_PORT", 6379)),
			Password: getEnv("REDIS_PASSWORD", ""),
			Username: getEnv("REDIS_USERNAME", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Crypto: CryptoConfig{
			PrivateKey: getEnv("PRIVATE_KEY", ""),
		},
		Invitations: InvitationConfig{
			TTL:             getEnvAsDuration("INVITATION_TTL", 7*24*time.Hour),
			ExpirySweepCron: getEnv("INVITATION_EXPIRY_CRON", "*/15 * * * *"),
		},
		Claims: ClaimsConfig{
			MaxBytes:  getEnvAsInt("CLAIMS_MAX_BYTES", 1000),
			SoftRatio: getEnvAsFloat("CLAIMS_SOFT_RATIO", 0.95),
			KeyPrefix: getEnv("CLAIMS_KEY_PREFIX", "claims:"),
		},
		Email: EmailConfig{
			APIURL:             getEnv("EMAIL_API_URL", "https://api.postmarkapp.com/email/withTemplate"),
			APIToken:           getEnv("EMAIL_API_TOKEN", ""),
			From:               getEnv("EMAIL_FROM", "no-reply@brandhub.local"),
			PerRecipientLimit:  getEnvAsInt("EMAIL_PER_RECIPIENT_LIMIT", 5),
			PerRecipientWindow: getEnvAsDuration("EMAIL_PER_RECIPIENT_WINDOW", time.Hour),
		},
		Admin: AdminConfig{
			Enabled: getEnvAsBool("ADMIN_ENABLED", false),
			UserIDs: getEnvAsList("ADMIN_USER_IDS"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 20),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 40),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", c.Store.Driver))
	}
	if c.Invitations.TTL <= 0 {
		errs = append(errs, errors.New("INVITATION_TTL must be positive"))
	}
	if _, err := cron.ParseStandard(c.Invitations.ExpirySweepCron); err != nil {
		errs = append(errs, fmt.Errorf("INVITATION_EXPIRY_CRON: %w", err))
	}
	if c.Claims.MaxBytes <= 0 {
		errs = append(errs, errors.New("CLAIMS_MAX_BYTES must be positive"))
	}
	if c.Claims.SoftRatio <= 0 || c.Claims.SoftRatio > 1 {
		errs = append(errs, errors.New("CLAIMS_SOFT_RATIO must be in (0, 1]"))
	}
	if c.JWT.Secret == "" && c.Crypto.PrivateKey == "" {
		errs = append(errs, errors.New("one of JWT_SECRET or PRIVATE_KEY is required"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
