package logger

// Config represents logging configuration
type Config struct {
	Level       string // debug, info, warn, error
	JSON        bool   // JSON encoding instead of console text
	Development bool   // zap development mode (stack traces on warn)
	OutputPath  string // "stderr", "stdout" or a file path
}

// Default values for logging configuration.
const (
	DefaultLogLevel   = "info"
	DefaultOutputPath = "stderr"
)

// DefaultConfig returns a console logger configuration at info level
func DefaultConfig() Config {
	return Config{
		Level:      DefaultLogLevel,
		OutputPath: DefaultOutputPath,
	}
}

// applyConfigDefaults fills unset fields with defaults
func applyConfigDefaults(cfg *Config) {
	if cfg.Level == "" {
		cfg.Level = DefaultLogLevel
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = DefaultOutputPath
	}
}
