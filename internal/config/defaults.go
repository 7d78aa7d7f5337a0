package config

import "time"

const (
	DefaultLogLevel        = "info"
	DefaultConnectTimeout  = 5 * time.Second
	DefaultStopTimeout     = 10 * time.Second
	DefaultKillSignal      = "SIGKILL"
	DefaultListen          = ":3000"
	DefaultShutdownTimeout = 10 * time.Second
)

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Runtime: RuntimeConfig{
			ConnectTimeout: DefaultConnectTimeout,
			StopTimeout:    DefaultStopTimeout,
			KillSignal:     DefaultKillSignal,
		},
		Server: ServerConfig{
			Listen:          DefaultListen,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
	}
}
