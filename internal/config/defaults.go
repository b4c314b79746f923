package config

import "sdmeta/internal/genmeta"

const (
	defaultConfigPath  = "~/.config/sdmeta/config.toml"
	projectConfigName  = "sdmeta.toml"
	defaultStateDir    = "~/.local/share/sdmeta"
	defaultLogDir      = "~/.local/share/sdmeta/logs"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
	defaultFormat      = "jpg"
	defaultLayout      = "mirror"
	defaultJPEGQuality = 95
	logLevelEnv        = "SDMETA_LOG_LEVEL"
)

// Default returns a Config populated with defaults. Logging.Level is left
// empty so the environment fallback can apply during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
		},
		Convert: Convert{
			Format:      defaultFormat,
			Layout:      defaultLayout,
			ExcludeDirs: []string{".bf"},
			JPEGQuality: defaultJPEGQuality,
		},
		Extract: Extract{
			StopList: genmeta.DefaultStopList(),
		},
		Report: Report{
			Enabled: true,
		},
	}
}
