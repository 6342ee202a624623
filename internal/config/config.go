package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port              string
	DBURL             string
	DBAutoMigrate     bool
	OMDbURL           string
	OMDbAPIKey        string
	OMDbTimeoutSecs   int
	OMDbDebug         bool
	PosterTimeoutSecs int
	PosterMaxBytes    int64
	MediaRoot         string
	MediaURL          string
	ReadTimeoutSecs   int
	WriteTimeoutSecs  int
	IdleTimeoutSecs   int
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	DBStatementCache  int
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		DBURL:             os.Getenv("DB_URL"),
		DBAutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
		OMDbURL:           getEnv("OMDB_URL", "http://www.omdbapi.com/"),
		OMDbAPIKey:        strings.TrimSpace(os.Getenv("OMDB_API_KEY")),
		OMDbTimeoutSecs:   getEnvInt("OMDB_TIMEOUT_SECS", 5),
		OMDbDebug:         getEnvBool("OMDB_DEBUG", false),
		PosterTimeoutSecs: getEnvInt("POSTER_TIMEOUT_SECS", 15),
		PosterMaxBytes:    int64(getEnvInt("POSTER_MAX_BYTES", 10<<20)),
		MediaRoot:         getEnv("MEDIA_ROOT", "media"),
		MediaURL:          getEnv("MEDIA_URL", "/media/"),
		ReadTimeoutSecs:   getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:  getEnvInt("SERVER_WRITE_TIMEOUT", 30),
		IdleTimeoutSecs:   getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:        getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:     getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:     getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs: getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:  getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
	}

	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.OMDbAPIKey == "" {
		return Config{}, fmt.Errorf("OMDB_API_KEY is required")
	}
	if cfg.OMDbTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("OMDB_TIMEOUT_SECS must be positive")
	}
	if cfg.PosterTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("POSTER_TIMEOUT_SECS must be positive")
	}
	if cfg.PosterMaxBytes <= 0 {
		return Config{}, fmt.Errorf("POSTER_MAX_BYTES must be positive")
	}
	if !strings.HasPrefix(cfg.MediaURL, "/") || !strings.HasSuffix(cfg.MediaURL, "/") {
		return Config{}, fmt.Errorf("MEDIA_URL must start and end with a slash")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
