package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// ValidationError contains details about what failed validation.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config.%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// validateConfig returns nil if valid, or joined errors for all validation failures.
func validateConfig(cfg *Config) error {
	var errs []error

	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, &ValidationError{
			Field:   "log_level",
			Value:   cfg.LogLevel,
			Message: "must be one of debug, info, warn, error, fatal",
		})
	}

	if cfg.Runtime.ConnectTimeout <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "runtime.connect_timeout",
			Value:   cfg.Runtime.ConnectTimeout,
			Message: "must be positive",
		})
	}

	// Stop timeout is sent in whole seconds
	if cfg.Runtime.StopTimeout < 0 {
		errs = append(errs, &ValidationError{
			Field:   "runtime.stop_timeout",
			Value:   cfg.Runtime.StopTimeout,
			Message: "must be non-negative",
		})
	}

	if cfg.Runtime.KillSignal == "" {
		errs = append(errs, &ValidationError{
			Field:   "runtime.kill_signal",
			Value:   cfg.Runtime.KillSignal,
			Message: "must not be empty",
		})
	}

	if cfg.Runtime.Host != "" && !strings.Contains(cfg.Runtime.Host, "://") {
		errs = append(errs, &ValidationError{
			Field:   "runtime.host",
			Value:   cfg.Runtime.Host,
			Message: "must include a scheme (unix://, tcp://, npipe://)",
		})
	}

	if cfg.Server.Listen == "" {
		errs = append(errs, &ValidationError{
			Field:   "server.listen",
			Value:   cfg.Server.Listen,
			Message: "must not be empty",
		})
	}

	if strings.HasPrefix(cfg.Server.ProxyDomain, ".") {
		errs = append(errs, &ValidationError{
			Field:   "server.proxy_domain",
			Value:   cfg.Server.ProxyDomain,
			Message: "must not start with a dot",
		})
	}

	return errors.Join(errs...)
}
