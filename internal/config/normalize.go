package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeJobs()
	c.normalizeEngine()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeJobs() {
	if c.Jobs.DefaultChunkSeconds <= 0 {
		c.Jobs.DefaultChunkSeconds = defaultChunkSeconds
	}
	if c.Jobs.DefaultOverlapSeconds < 0 {
		c.Jobs.DefaultOverlapSeconds = defaultOverlapSeconds
	}
	if c.Jobs.MaxConcurrent <= 0 {
		c.Jobs.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Jobs.RetentionMinutes < 0 {
		c.Jobs.RetentionMinutes = defaultRetentionMinutes
	}
	if c.Jobs.MaxJobs <= 0 {
		c.Jobs.MaxJobs = defaultMaxJobs
	}
}

func (c *Config) normalizeEngine() {
	if strings.TrimSpace(c.Engine.Binary) == "" {
		c.Engine.Binary = defaultEngineBinary
	}
	if strings.TrimSpace(c.Engine.FFmpegBinary) == "" {
		c.Engine.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Engine.FFprobeBinary) == "" {
		c.Engine.FFprobeBinary = defaultFFprobeBinary
	}
	if strings.TrimSpace(c.Engine.Model) == "" {
		c.Engine.Model = defaultEngineModel
	}
	if c.Engine.ChunkTimeoutSeconds < 0 {
		c.Engine.ChunkTimeoutSeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
