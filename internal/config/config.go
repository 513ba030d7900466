package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	LocalMemory = "memory"
	LocalBolt   = "bolt"
	LocalSQLite = "sqlite"

	RemoteNone     = "none"
	RemotePostgres = "postgres"
	RemoteRedis    = "redis"
)

type Config struct {
	Port          string
	AllowedOrigin string

	LogLevel    string
	LogEncoding string
	LogFile     string

	LocalDriver        string
	LocalPath          string
	LocalCapacityBytes int

	RemoteDriver  string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RemoteTimeout time.Duration

	DefaultStoreName   string
	DefaultListingDays int
	Timezone           string
}

// LoadDotEnv reads a .env file into the environment when one exists.
// Variables already set are kept.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

func Load() Config {
	capacity := cast.ToInt(getEnv("LOCAL_CAPACITY_BYTES", "5242880"))
	if capacity < 0 {
		capacity = 0
	}
	timeoutSeconds := cast.ToInt(getEnv("REMOTE_TIMEOUT_SECONDS", "5"))
	if timeoutSeconds < 1 {
		timeoutSeconds = 5
	}
	listingDays := cast.ToInt(getEnv("DEFAULT_LISTING_DAYS", "30"))
	if listingDays < 1 {
		listingDays = 30
	}

	remote := strings.ToLower(getEnv("REMOTE_DRIVER", ""))
	if remote == "" {
		remote = RemoteNone
		switch {
		case os.Getenv("DATABASE_URL") != "":
			remote = RemotePostgres
		case os.Getenv("REDIS_ADDR") != "":
			remote = RemoteRedis
		}
	}

	return Config{
		Port:               getEnv("PORT", "8080"),
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogEncoding:        getEnv("LOG_ENCODING", "json"),
		LogFile:            os.Getenv("LOG_FILE"),
		LocalDriver:        strings.ToLower(getEnv("LOCAL_DRIVER", LocalBolt)),
		LocalPath:          getEnv("LOCAL_PATH", "resale.db"),
		LocalCapacityBytes: capacity,
		RemoteDriver:       remote,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            cast.ToInt(getEnv("REDIS_DB", "0")),
		RemoteTimeout:      time.Duration(timeoutSeconds) * time.Second,
		DefaultStoreName:   getEnv("DEFAULT_STORE_NAME", "My Store"),
		DefaultListingDays: listingDays,
		Timezone:           os.Getenv("TIMEZONE"),
	}
}

// Validate checks that the selected drivers have what they need.
func (c Config) Validate() error {
	switch c.LocalDriver {
	case LocalMemory:
	case LocalBolt, LocalSQLite:
		if c.LocalPath == "" {
			return fmt.Errorf("LOCAL_PATH is required for LOCAL_DRIVER=%s", c.LocalDriver)
		}
	default:
		return fmt.Errorf("unknown LOCAL_DRIVER %q", c.LocalDriver)
	}

	switch c.RemoteDriver {
	case RemoteNone:
	case RemotePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for REMOTE_DRIVER=postgres")
		}
	case RemoteRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for REMOTE_DRIVER=redis")
		}
	default:
		return fmt.Errorf("unknown REMOTE_DRIVER %q", c.RemoteDriver)
	}

	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
		}
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}
