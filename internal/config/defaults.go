package config

const (
	defaultWorkDir             = "~/.local/share/scribe/work"
	defaultLogDir              = "~/.local/share/scribe/logs"
	defaultAPIBind             = "127.0.0.1:8765"
	defaultChunkSeconds        = 30
	defaultOverlapSeconds      = 3
	defaultMaxConcurrent       = 2
	defaultRetentionMinutes    = 60
	defaultMaxJobs             = 256
	defaultEngineBinary        = "whisper-cli"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultEngineModel         = "base"
	defaultChunkTimeoutSeconds = 0
	defaultNtfyRequestTimeout  = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Jobs: Jobs{
			DefaultChunkSeconds:   defaultChunkSeconds,
			DefaultOverlapSeconds: defaultOverlapSeconds,
			MaxConcurrent:         defaultMaxConcurrent,
			RetentionMinutes:      defaultRetentionMinutes,
			MaxJobs:               defaultMaxJobs,
		},
		Engine: Engine{
			Binary:              defaultEngineBinary,
			FFmpegBinary:        defaultFFmpegBinary,
			FFprobeBinary:       defaultFFprobeBinary,
			Model:               defaultEngineModel,
			ChunkTimeoutSeconds: defaultChunkTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
