package config

const (
	defaultDatabasePath = "~/.local/share/crossfade/library.db"
	defaultConfigPath   = "~/.config/crossfade/config.toml"
	projectConfigName   = "crossfade.toml"
	defaultLogLevel     = "info"
	defaultLogFormat    = "text"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Library: Library{
			Database: defaultDatabasePath,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
