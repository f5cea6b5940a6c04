package config

import (
	"fmt"
	"net"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind: invalid bind address %q: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Jobs.DefaultOverlapSeconds >= c.Jobs.DefaultChunkSeconds {
		return fmt.Errorf("jobs.default_overlap_seconds (%g) must be shorter than jobs.default_chunk_seconds (%g)",
			c.Jobs.DefaultOverlapSeconds, c.Jobs.DefaultChunkSeconds)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
