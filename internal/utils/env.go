package utils

import (
	"os"
	"strconv"

	"github.com/pagechat-org/pagechat-backend/internal/logger"
)

// GetEnv returns the value of the named environment variable, falling back
// to defaultVal when the variable is unset. A nil log is allowed.
func GetEnv(key, defaultVal string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not set, using default", "default", defaultVal)
		}
		return defaultVal
	}
	if log != nil {
		log.Debug("Environment variable found", "value", val)
	}
	return val
}

// GetEnvAsInt returns the named environment variable parsed as an int,
// falling back to defaultVal when the variable is unset or not an integer.
func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	if log != nil {
		log = log.With("env_var", key)
	}
	valStr, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not set, using default", "default", defaultVal)
		}
		return defaultVal
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		if log != nil {
			log.Debug("Environment variable is not an integer, using default", "value", valStr, "default", defaultVal, "error", err)
		}
		return defaultVal
	}
	if log != nil {
		log.Debug("Environment variable found", "value", i)
	}
	return i
}
