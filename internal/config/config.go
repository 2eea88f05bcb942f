package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config is read once from the environment at process start.
type Config struct {
	Port         int
	Web3Provider string

	RegistryContract string
	LogLevel         string
	RPCTimeoutSecs   int

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	return Config{
		Port:                   envIntDefault("PORT", 0),
		Web3Provider:           os.Getenv("WEB3_PROVIDER"),
		RegistryContract:       os.Getenv("REGISTRY_CONTRACT"),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		RPCTimeoutSecs:         envIntDefault("RPC_TIMEOUT_SECONDS", 15),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
	}
}

// Validate enforces the settings the process cannot start without.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("PORT must be set to a valid listen port")
	}
	if c.Web3Provider == "" {
		return errors.New("WEB3_PROVIDER must be set to the chain RPC endpoint")
	}
	return nil
}

// HTTPAddr is the listen address derived from PORT.
func (c Config) HTTPAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

// RPCTimeout is the per-fetch deadline for receipt lookups.
func (c Config) RPCTimeout() time.Duration {
	return time.Duration(c.RPCTimeoutSecs) * time.Second
}

// RateLimitWindow is the fixed window applied to /api/receive.
func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}
