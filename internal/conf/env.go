// env.go - Environment variable configuration and validation for pcmring
package conf

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/pcmring/internal/capture"
	"github.com/tphakala/pcmring/internal/ringbuffer"
)

const envPrefix = "PCMRING"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "PCMRING_DEBUG", validateEnvBool},
		{"log.level", "PCMRING_LOG_LEVEL", validateEnvLogLevel},
		{"log.json", "PCMRING_LOG_JSON", validateEnvBool},

		// Audio endpoint
		{"audio.mode", "PCMRING_AUDIO_MODE", validateEnvMode},
		{"audio.device", "PCMRING_AUDIO_DEVICE", nil},
		{"audio.samplerate", "PCMRING_AUDIO_SAMPLERATE", validateEnvPositiveInt},
		{"audio.channels", "PCMRING_AUDIO_CHANNELS", validateEnvPositiveInt},
		{"audio.bitdepth", "PCMRING_AUDIO_BITDEPTH", validateEnvBitDepth},

		// Ring buffer
		{"buffer.duration", "PCMRING_BUFFER_DURATION", validateEnvDuration},
		{"buffer.overflow", "PCMRING_BUFFER_OVERFLOW", validateEnvOverflow},

		// Consumers
		{"recorder.path", "PCMRING_RECORDER_PATH", nil},
		{"recorder.quantum", "PCMRING_RECORDER_QUANTUM", validateEnvDuration},
		{"recorder.maxduration", "PCMRING_RECORDER_MAXDURATION", validateEnvDuration},
		{"playback.device", "PCMRING_PLAYBACK_DEVICE", nil},
		{"playback.gain", "PCMRING_PLAYBACK_GAIN", validateEnvGain},
		{"playback.periodms", "PCMRING_PLAYBACK_PERIODMS", validateEnvNonNegativeInt},

		// Observability
		{"metrics.enabled", "PCMRING_METRICS_ENABLED", validateEnvBool},
		{"metrics.listen", "PCMRING_METRICS_LISTEN", validateEnvListen},
		{"sentry.enabled", "PCMRING_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "PCMRING_SENTRY_DSN", nil},
		{"sentry.debug", "PCMRING_SENTRY_DEBUG", validateEnvBool},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("must be one of: debug, info, warn, error")
}

func validateEnvMode(value string) error {
	_, err := capture.ParseMode(value)
	return err
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

// validateEnvNonNegativeInt accepts 0, which means "backend default"
func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}

func validateEnvBitDepth(value string) error {
	switch strings.TrimSpace(value) {
	case "16", "24", "32":
		return nil
	}
	return fmt.Errorf("must be one of: 16, 24, 32")
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("duration must not be negative, got %s", d)
	}
	return nil
}

func validateEnvOverflow(value string) error {
	_, err := ringbuffer.ParseOverflowPolicy(value)
	return err
}

func validateEnvGain(value string) error {
	gain, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("invalid gain: %w", err)
	}
	if gain < 0 || gain > maxGain {
		return fmt.Errorf("gain must be between 0 and %g, got %g", maxGain, gain)
	}
	return nil
}

func validateEnvListen(value string) error {
	if _, _, err := net.SplitHostPort(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("expected host:port: %w", err)
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars(v)
}
