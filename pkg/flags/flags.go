package flags

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
)

// Config holds all command-line configuration
type Config struct {
	ConfigPath string
	EnvFile    string
	Port       string
	LogLevel   string
}

// DefaultConfig returns default configuration values
func DefaultConfig() Config {
	return Config{
		EnvFile: ".env",
	}
}

// Bind registers the flags on fs and returns the config they fill in
func Bind(fs *pflag.FlagSet) *Config {
	config := DefaultConfig()

	fs.StringVarP(&config.ConfigPath, "config", "c", config.ConfigPath, "Config file path (YAML)")
	fs.StringVar(&config.EnvFile, "env-file", config.EnvFile, "Optional .env file loaded before the config")
	fs.StringVar(&config.Port, "port", config.Port, "Ops HTTP port for /metrics and /healthz (1-65535)")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level (debug, info, warn, error)")

	return &config
}

// validatePort validates the port number
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("port cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port number '%s': must be a number", port)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("port number %d is out of range: must be between 1 and 65535", portNum)
	}

	return nil
}

// Validate validates the parsed configuration. An empty port means
// "use the config file value".
func (c Config) Validate() error {
	if c.Port != "" {
		if err := validatePort(c.Port); err != nil {
			return err
		}
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}

	return nil
}
