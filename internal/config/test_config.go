package config

import "time"

func LoadTestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "localhost",
			Port:      8081,
			PublicURL: "http://localhost:8081",
			AppURL:    "http://localhost:3000",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Name:     "brandhub_test",
			User:     "test_user",
			Password: "test_password",
			LogLevel: "silent",
		},
		Store: StoreConfig{
			Driver: "memory",
		},
		JWT: JWTConfig{
			Secret: "test-secret",
			Issuer: "brandhub-test",
			TTL:    time.Hour,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		},
		Invitations: InvitationConfig{
			TTL:             7 * 24 * time.Hour,
			ExpirySweepCron: "*/15 * * * *",
		},
		Claims: ClaimsConfig{
			MaxBytes:  1000,
			SoftRatio: 0.95,
			KeyPrefix: "claims:",
		},
		Email: EmailConfig{
			From:               "no-reply@brandhub.test",
			PerRecipientLimit:  5,
			PerRecipientWindow: time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             100,
		},
	}
}
