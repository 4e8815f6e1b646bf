package config

import (
	"os"
	"strconv"
)

type Config struct {
	DBDriver   string // "sqlite" or "postgres"
	DBPath     string // sqlite file path
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	ServerPort string

	MaxRecordsPerUser    int
	LeaderboardSize      int
	WSWriteTimeoutSec    int
	CleanupIntervalHours int
	RetentionDays        int
	InactiveUserDays     int
}

func Load() *Config {
	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBPath:     getEnv("DB_PATH", "tetris.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "tetris"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		MaxRecordsPerUser:    getEnvInt("MAX_RECORDS_PER_USER", 1000),
		LeaderboardSize:      getEnvInt("LEADERBOARD_SIZE", 10),
		WSWriteTimeoutSec:    getEnvInt("WS_WRITE_TIMEOUT", 5),
		CleanupIntervalHours: getEnvInt("CLEANUP_INTERVAL_HOURS", 24),
		RetentionDays:        getEnvInt("RETENTION_DAYS", 365),
		InactiveUserDays:     getEnvInt("INACTIVE_USER_DAYS", 180),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
