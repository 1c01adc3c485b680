package config

import (
	"os"
	"strconv"
	"time"
)

const (
	appNameVar        = "APP_NAME"
	apiBaseURLVar     = "ELARA_API_BASE_URL"
	dataFolderVar     = "ELARA_DATA_FOLDER"
	httpTimeoutVar    = "ELARA_HTTP_TIMEOUT"
	streamAttemptsVar = "ELARA_STREAM_ATTEMPTS"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Elara")
}

// GetAPIBaseURL returns the base URL of the Elara REST API
// (e.g., "https://api.elara.app"). All endpoint paths are relative to it.
func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "http://localhost:8000")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(dataFolderVar, "./data")
}

func (EnvVars) GetHTTPTimeout() time.Duration {
	timeout, err := time.ParseDuration(GetEnv(httpTimeoutVar, "30s"))
	if err != nil {
		return 30 * time.Second
	}
	return timeout
}

// GetStreamAttempts returns the maximum number of consecutive reconnect
// attempts for the live alert stream before giving up.
func (EnvVars) GetStreamAttempts() int {
	attempts, err := strconv.Atoi(GetEnv(streamAttemptsVar, "10"))
	if err != nil || attempts < 1 {
		return 10
	}
	return attempts
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
