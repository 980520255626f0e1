package config

import (
	"os"

	"github.com/joho/godotenv"
)

// DriverSettings holds the ambient settings of a driver program (none
// ships in this repository), never the simulation core itself: the loaded
// program document is the only configuration surface the core reads.
// LoadDriverSettings is the one place in this module that touches the
// environment.
type DriverSettings struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
	ProgramPath string
}

// LoadDriverSettings reads a .env file if present (ignored if absent)
// and overlays process environment variables on top of the given
// defaults.
func LoadDriverSettings(defaults DriverSettings) DriverSettings {
	_ = godotenv.Load()

	settings := defaults
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		settings.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		settings.LogFormat = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		settings.MetricsAddr = v
	}
	if v := os.Getenv("CYCLESIM_PROGRAM"); v != "" {
		settings.ProgramPath = v
	}
	return settings
}
