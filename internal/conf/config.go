// config.go: settings struct for pcmring and functions to load and render it.
package conf

import (
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/pcmring/internal/capture"
	"github.com/tphakala/pcmring/internal/errors"
	"github.com/tphakala/pcmring/internal/ringbuffer"
)

// LogSettings controls the application logger
type LogSettings struct {
	Level string `yaml:"level"` // debug, info, warn or error
	JSON  bool   `yaml:"json"`  // true for JSON output instead of console text
}

// AudioSettings describes the capture endpoint and the PCM layout it delivers
type AudioSettings struct {
	Mode       string `yaml:"mode"`       // capture, loopback or playback
	Device     string `yaml:"device"`     // device name, ID or substring; empty for the default
	SampleRate int    `yaml:"samplerate"` // frames per second
	Channels   int    `yaml:"channels"`   // interleaved channels per frame
	BitDepth   int    `yaml:"bitdepth"`   // 16, 24 or 32
}

// BufferSettings sizes the ring buffer between source and consumer
type BufferSettings struct {
	Duration time.Duration `yaml:"duration"` // audio held by the buffer
	Overflow string        `yaml:"overflow"` // keep or ignore
}

// RecorderSettings configures the WAV recorder consumer
type RecorderSettings struct {
	Path        string        `yaml:"path"`        // output file
	Quantum     time.Duration `yaml:"quantum"`     // polling period
	MaxDuration time.Duration `yaml:"maxduration"` // 0 records until interrupted
}

// PlaybackSettings configures the gain playback consumer
type PlaybackSettings struct {
	Device   string  `yaml:"device"`   // output device; empty for the default
	Gain     float64 `yaml:"gain"`     // linear gain applied to samples
	PeriodMs uint32  `yaml:"periodms"` // device period, 0 lets the backend choose
}

// MetricsSettings controls the Prometheus and status endpoint
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // host:port
}

// SentrySettings controls opt-in error reporting
type SentrySettings struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
	Debug   bool   `yaml:"debug"`
}

// Settings is the root of the configuration tree
type Settings struct {
	Debug    bool             `yaml:"debug"`
	Log      LogSettings      `yaml:"log"`
	Audio    AudioSettings    `yaml:"audio"`
	Buffer   BufferSettings   `yaml:"buffer"`
	Recorder RecorderSettings `yaml:"recorder"`
	Playback PlaybackSettings `yaml:"playback"`
	Metrics  MetricsSettings  `yaml:"metrics"`
	Sentry   SentrySettings   `yaml:"sentry"`
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file, environment variables and bound flags
// from the global viper instance into the current settings.
func Load() (*Settings, error) {
	settings, err := load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()
	return settings, nil
}

// load builds and validates settings from v
func load(v *viper.Viper) (*Settings, error) {
	if err := initViper(v); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component(componentConfig).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component(componentConfig).
			Category(errors.CategoryValidation).
			Context("operation", "validate_config").
			Build()
	}

	return settings, nil
}

// initViper sets defaults and environment bindings on v and reads the config
// file if one exists. A missing file is not an error.
func initViper(v *viper.Viper) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range GetDefaultConfigPaths() {
		v.AddConfigPath(path)
	}

	setDefaultConfig(v)

	if err := configureEnvironmentVariables(v); err != nil {
		return errors.New(err).
			Component(componentConfig).
			Category(errors.CategoryConfiguration).
			Context("operation", "bind_environment").
			Build()
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			GetLogger().Debug("no config file found, using defaults")
			return nil
		}
		return errors.New(err).
			Component(componentConfig).
			Category(errors.CategoryConfiguration).
			Context("operation", "read_config").
			Build()
	}

	GetLogger().Debug("config file loaded")
	return nil
}

// GetSettings returns the current settings instance, nil before Load
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Format returns the PCM layout described by the audio settings
func (s *Settings) Format() capture.Format {
	return capture.Format{
		SampleRate: s.Audio.SampleRate,
		Channels:   s.Audio.Channels,
		BitDepth:   s.Audio.BitDepth,
	}
}

// Mode returns the parsed device mode
func (s *Settings) Mode() (capture.Mode, error) {
	return capture.ParseMode(s.Audio.Mode)
}

// OverflowPolicy returns the parsed buffer overflow policy
func (s *Settings) OverflowPolicy() (ringbuffer.OverflowPolicy, error) {
	return ringbuffer.ParseOverflowPolicy(s.Buffer.Overflow)
}

// BufferCapacity returns the ring capacity in bytes for the configured
// duration and format, rounded down to whole frames, and the frame size
// used as alignment.
func (s *Settings) BufferCapacity() (capacity, alignment int) {
	f := s.Format()
	alignment = f.BlockAlign()
	if alignment <= 0 {
		return 0, 0
	}
	bytes := int64(f.BytesPerSecond()) * int64(s.Buffer.Duration) / int64(time.Second)
	return int(bytes - bytes%int64(alignment)), alignment
}

// RenderYAML returns the settings as a YAML document. The Sentry DSN is
// masked.
func (s *Settings) RenderYAML() ([]byte, error) {
	out := *s
	if out.Sentry.DSN != "" {
		out.Sentry.DSN = maskedValue
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, errors.New(err).
			Component(componentConfig).
			Category(errors.CategoryConfiguration).
			Context("operation", "render_yaml").
			Build()
	}
	return data, nil
}
