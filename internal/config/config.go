// Package config loads the runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
)

// Backend and realtime driver names accepted by Load.
const (
	BackendRest     = "rest"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	RealtimeNATS   = "nats"
	RealtimeRedis  = "redis"
	RealtimeMemory = "memory"
)

type Config struct {
	Port string
	Env  string

	// Backend selects the Store/RPC/Auth driver.
	Backend string
	// Realtime selects the pub/sub driver.
	Realtime string

	PlatformURL string
	PlatformKey string
	DatabaseURL string

	NatsURL      string
	NatsCred     string
	NatsUser     string
	NatsPassword string

	RedisURL string

	// JWTSecret lets the session layer verify platform access tokens
	// locally. Empty means every resolution round-trips to the platform.
	JWTSecret string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func Load() Config {
	return Config{
		Port:         getenv("PORT", "8080"),
		Env:          getenv("APP_ENV", "dev"),
		Backend:      getenv("ARCANUS_BACKEND", BackendMemory),
		Realtime:     getenv("ARCANUS_REALTIME", RealtimeMemory),
		PlatformURL:  os.Getenv("PLATFORM_URL"),
		PlatformKey:  os.Getenv("PLATFORM_ANON_KEY"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		NatsURL:      os.Getenv("NATS_URL"),
		NatsCred:     os.Getenv("NATS_CRED"),
		NatsUser:     os.Getenv("NATS_USER"),
		NatsPassword: os.Getenv("NATS_PASSWORD"),
		RedisURL:     os.Getenv("REDIS_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
	}
}

// Validate rejects configurations that would only fail later at dial time.
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("config: port is required")
	}

	switch cfg.Backend {
	case BackendRest:
		if cfg.PlatformURL == "" {
			return errors.New("config: PLATFORM_URL is required for the rest backend")
		}
		if cfg.PlatformKey == "" {
			return errors.New("config: PLATFORM_ANON_KEY is required for the rest backend")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres backend")
		}
	case BackendMemory:
		if cfg.Env == "prod" {
			return errors.New("config: memory backend is not for production")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", cfg.Backend)
	}

	switch cfg.Realtime {
	case RealtimeNATS:
		if cfg.NatsURL == "" {
			return errors.New("config: NATS_URL is required for the nats realtime driver")
		}
	case RealtimeRedis:
		if cfg.RedisURL == "" {
			return errors.New("config: REDIS_URL is required for the redis realtime driver")
		}
	case RealtimeMemory:
		if cfg.Backend != BackendMemory {
			return errors.New("config: memory realtime only pairs with the memory backend")
		}
	default:
		return fmt.Errorf("config: unknown realtime driver %q", cfg.Realtime)
	}

	return nil
}
