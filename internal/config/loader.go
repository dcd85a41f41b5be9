package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort        int
	SQLiteDSN       string
	SealingKey      string
	ProviderTimeout time.Duration
	SyncWorkers     int
	BulkWorkers     int
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults; required values and malformed
// entries are accumulated so one run reports every problem at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:scheduler.db?_foreign_keys=on",
		ProviderTimeout: 30 * time.Second,
		SyncWorkers:     4,
		BulkWorkers:     4,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("SCHEDULER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SCHEDULER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	// 32 bytes hex encoded; the sealer rejects anything else at startup.
	if key := strings.TrimSpace(os.Getenv("SCHEDULER_SEALING_KEY")); key == "" {
		missing = append(missing, "SCHEDULER_SEALING_KEY")
	} else if len(key) != 64 {
		invalid = append(invalid, "SCHEDULER_SEALING_KEY")
	} else {
		cfg.SealingKey = key
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("SCHEDULER_PROVIDER_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "SCHEDULER_PROVIDER_TIMEOUT")
		} else {
			cfg.ProviderTimeout = timeout
		}
	}

	if workersValue := strings.TrimSpace(os.Getenv("SCHEDULER_SYNC_WORKERS")); workersValue != "" {
		workers, err := strconv.Atoi(workersValue)
		if err != nil || workers <= 0 {
			invalid = append(invalid, "SCHEDULER_SYNC_WORKERS")
		} else {
			cfg.SyncWorkers = workers
		}
	}

	if workersValue := strings.TrimSpace(os.Getenv("SCHEDULER_BULK_WORKERS")); workersValue != "" {
		workers, err := strconv.Atoi(workersValue)
		if err != nil || workers <= 0 {
			invalid = append(invalid, "SCHEDULER_BULK_WORKERS")
		} else {
			cfg.BulkWorkers = workers
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
