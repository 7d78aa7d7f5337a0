package config

import (
	"fmt"
	"os"
	"time"
)

// envOverrides maps environment variables to config field setters.
var envOverrides = []struct {
	envVar string
	apply  func(*Config, string) error
}{
	{
		envVar: "LIGHTHOUSE_LOG_LEVEL",
		apply: func(c *Config, v string) error {
			c.LogLevel = v
			return nil
		},
	},
	{
		envVar: "LIGHTHOUSE_DOCKER_HOST",
		apply: func(c *Config, v string) error {
			c.Runtime.Host = v
			return nil
		},
	},
	{
		envVar: "LIGHTHOUSE_API_VERSION",
		apply: func(c *Config, v string) error {
			c.Runtime.APIVersion = v
			return nil
		},
	},
	{
		envVar: "LIGHTHOUSE_CONNECT_TIMEOUT",
		apply: func(c *Config, v string) error {
			return setDuration(&c.Runtime.ConnectTimeout, v)
		},
	},
	{
		envVar: "LIGHTHOUSE_STOP_TIMEOUT",
		apply: func(c *Config, v string) error {
			return setDuration(&c.Runtime.StopTimeout, v)
		},
	},
	{
		envVar: "LIGHTHOUSE_KILL_SIGNAL",
		apply: func(c *Config, v string) error {
			c.Runtime.KillSignal = v
			return nil
		},
	},
	{
		envVar: "LIGHTHOUSE_LISTEN",
		apply: func(c *Config, v string) error {
			c.Server.Listen = v
			return nil
		},
	},
	{
		envVar: "LIGHTHOUSE_PROXY_DOMAIN",
		apply: func(c *Config, v string) error {
			c.Server.ProxyDomain = v
			return nil
		},
	},
	{
		envVar: "LIGHTHOUSE_BUILD_DIR",
		apply: func(c *Config, v string) error {
			c.Build.WorkDir = v
			return nil
		},
	},
}

// applyEnvOverrides modifies config in place with environment variable values.
func applyEnvOverrides(cfg *Config) error {
	for _, override := range envOverrides {
		if val := os.Getenv(override.envVar); val != "" {
			if err := override.apply(cfg, val); err != nil {
				return fmt.Errorf("%s: %w", override.envVar, err)
			}
		}
	}
	return nil
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
