package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Политики выбора местоположения для потерянной единицы без detail_location
const (
	MissingLocationFallback = "fallback"
	MissingLocationStrict   = "strict"
)

// Config содержит настройки приложения
type Config struct {
	Port        string
	DatabaseURL string
	SQLitePath  string
	CORSOrigins string
	LogLevel    string

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	DuplicateCacheTTL        time.Duration
	MissingLocationPolicy    string
	ProjectionRepairInterval time.Duration
}

// Load читает настройки из окружения (и .env, если он есть)
func Load() *Config {
	// .env необязателен
	_ = godotenv.Load()

	cfg := &Config{
		Port:                     getEnv("PORT", "8080"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		SQLitePath:               getEnv("SQLITE_PATH", "locatrack.db"),
		CORSOrigins:              getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		RedisAddress:             os.Getenv("REDIS_ADDRESS"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  getInt("REDIS_DB", 0),
		DuplicateCacheTTL:        getDuration("DUPLICATE_CACHE_TTL", 5*time.Minute),
		MissingLocationPolicy:    getEnv("MISSING_LOCATION_POLICY", MissingLocationFallback),
		ProjectionRepairInterval: getDuration("PROJECTION_REPAIR_INTERVAL", 0),
	}

	if cfg.MissingLocationPolicy != MissingLocationFallback && cfg.MissingLocationPolicy != MissingLocationStrict {
		log.Printf("unknown MISSING_LOCATION_POLICY %q; using %q", cfg.MissingLocationPolicy, MissingLocationFallback)
		cfg.MissingLocationPolicy = MissingLocationFallback
	}
	if cfg.DuplicateCacheTTL <= 0 {
		cfg.DuplicateCacheTTL = 5 * time.Minute
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q: %v; using %d", key, v, err, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q: %v; using %s", key, v, err, fallback)
		return fallback
	}
	return d
}
