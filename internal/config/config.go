package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Jobs     JobsConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	URL string
}

type JobsConfig struct {
	DefinitionsPath  string
	PollInterval     time.Duration
	MaxWait          time.Duration
	HistoryRetention time.Duration
	PruneSchedule    string
	SlotLockName     string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", ""),
		},
		Database: DatabaseConfig{
			// optional; enables the cluster-wide slot lock when set
			URL: getEnv("DATABASE_URL", ""),
		},
		Jobs: JobsConfig{
			DefinitionsPath:  getEnv("JOB_DEFINITIONS_PATH", "configs/jobs.yaml"),
			PollInterval:     getEnvAsDuration("JOB_CANCEL_POLL_INTERVAL", time.Second),
			MaxWait:          getEnvAsDuration("JOB_CANCEL_MAX_WAIT", 0),
			HistoryRetention: getEnvAsDuration("JOB_HISTORY_RETENTION", 0),
			PruneSchedule:    getEnv("JOB_HISTORY_PRUNE_SCHEDULE", "@every 10m"),
			SlotLockName:     getEnv("JOB_SLOT_LOCK_NAME", "jobrunner:execution-slot"),
		},
	}
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if seconds := getEnvAsInt(key, -1); seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
