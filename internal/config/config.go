package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	Redis    RedisConfig
	Argon2   Argon2Config
}

type ServerConfig struct {
	Port    string
	Metrics bool
}

type DatabaseConfig struct {
	URL           string
	MigrationsDir string
}

type SessionConfig struct {
	MaxAge       int64 // seconds
	CookieName   string
	CookieSecret string
}

type RedisConfig struct {
	URL           string // empty disables redis
	Sessions      bool   // store sessions in redis instead of postgres
	SweepInterval int64  // seconds
}

type Argon2Config struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
}

func Load() (*Config, error) {
	viper.AutomaticEnv()
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		viper.SetConfigFile(p)
		_ = viper.ReadInConfig()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			Metrics: getEnvOrDefault("METRICS", "true") != "false",
		},
		Database: DatabaseConfig{
			URL:           getEnvOrDefault("DATABASE_URL", ""),
			MigrationsDir: getEnvOrDefault("MIGRATIONS_DIR", "migrations"),
		},
		Session: SessionConfig{
			MaxAge:       viper.GetInt64("SESSION_MAX_AGE"),
			CookieName:   getEnvOrDefault("SESSION_COOKIE_NAME", "fb_session"),
			CookieSecret: getEnvOrDefault("SESSION_COOKIE_SECRET", ""),
		},
		Redis: RedisConfig{
			URL:           getEnvOrDefault("REDIS_URL", ""),
			Sessions:      getEnvOrDefault("REDIS_SESSIONS", "") == "true",
			SweepInterval: viper.GetInt64("SESSION_SWEEP_INTERVAL"),
		},
		Argon2: Argon2Config{
			Memory:      uint32(viper.GetInt("ARGON2_MEMORY")),
			Iterations:  uint32(viper.GetInt("ARGON2_ITERATIONS")),
			Parallelism: uint8(viper.GetInt("ARGON2_PARALLELISM")),
		},
	}
	if cfg.Session.MaxAge <= 0 {
		cfg.Session.MaxAge = 604800
	}
	if cfg.Redis.SweepInterval <= 0 {
		cfg.Redis.SweepInterval = 600
	}
	if cfg.Argon2.Memory == 0 {
		cfg.Argon2.Memory = 64 * 1024
	}
	if cfg.Argon2.Iterations == 0 {
		cfg.Argon2.Iterations = 3
	}
	if cfg.Argon2.Parallelism == 0 {
		cfg.Argon2.Parallelism = 2
	}
	if cfg.Session.CookieSecret == "" {
		return nil, fmt.Errorf("SESSION_COOKIE_SECRET is required")
	}
	if cfg.Redis.Sessions && cfg.Redis.URL == "" {
		return nil, fmt.Errorf("REDIS_SESSIONS=true requires REDIS_URL")
	}
	return cfg, nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
