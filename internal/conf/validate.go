// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/tphakala/pcmring/internal/capture"
	"github.com/tphakala/pcmring/internal/ringbuffer"
)

// maxGain bounds playback gain; anything louder only clips
const maxGain = 16.0

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, validate := range []func(*Settings) []string{
		validateLogSettings,
		validateAudioSettings,
		validateBufferSettings,
		validateRecorderSettings,
		validatePlaybackSettings,
		validateMetricsSettings,
		validateSentrySettings,
	} {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLogSettings(s *Settings) []string {
	if err := validateEnvLogLevel(s.Log.Level); err != nil {
		return []string{fmt.Sprintf("log.level %q: %v", s.Log.Level, err)}
	}
	return nil
}

func validateAudioSettings(s *Settings) []string {
	var errs []string

	if _, err := capture.ParseMode(s.Audio.Mode); err != nil {
		errs = append(errs, fmt.Sprintf("audio.mode: %v", err))
	}
	if err := s.Format().Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("audio: %v", err))
	}

	return errs
}

func validateBufferSettings(s *Settings) []string {
	var errs []string

	if _, err := ringbuffer.ParseOverflowPolicy(s.Buffer.Overflow); err != nil {
		errs = append(errs, fmt.Sprintf("buffer.overflow: %v", err))
	}

	// a ring needs at least two frames to ever hold readable data
	if capacity, alignment := s.BufferCapacity(); alignment > 0 && capacity < 2*alignment {
		errs = append(errs, fmt.Sprintf("buffer.duration %s is too short for %s", s.Buffer.Duration, s.Format()))
	}

	return errs
}

func validateRecorderSettings(s *Settings) []string {
	var errs []string

	if strings.TrimSpace(s.Recorder.Path) == "" {
		errs = append(errs, "recorder.path must not be empty")
	}
	if s.Recorder.Quantum <= 0 {
		errs = append(errs, fmt.Sprintf("recorder.quantum must be positive, got %s", s.Recorder.Quantum))
	}
	if s.Recorder.Quantum > 0 && s.Buffer.Duration > 0 && s.Recorder.Quantum >= s.Buffer.Duration {
		errs = append(errs, fmt.Sprintf("recorder.quantum %s must be shorter than buffer.duration %s",
			s.Recorder.Quantum, s.Buffer.Duration))
	}
	if s.Recorder.MaxDuration < 0 {
		errs = append(errs, fmt.Sprintf("recorder.maxduration must not be negative, got %s", s.Recorder.MaxDuration))
	}

	return errs
}

func validatePlaybackSettings(s *Settings) []string {
	var errs []string

	if s.Playback.Gain < 0 || s.Playback.Gain > maxGain {
		errs = append(errs, fmt.Sprintf("playback.gain must be between 0 and %g, got %g", maxGain, s.Playback.Gain))
	}
	if period := time.Duration(s.Playback.PeriodMs) * time.Millisecond; s.Buffer.Duration > 0 && period >= s.Buffer.Duration {
		errs = append(errs, fmt.Sprintf("playback.periodms %d must be shorter than buffer.duration %s",
			s.Playback.PeriodMs, s.Buffer.Duration))
	}

	return errs
}

func validateMetricsSettings(s *Settings) []string {
	if !s.Metrics.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(s.Metrics.Listen); err != nil {
		return []string{fmt.Sprintf("metrics.listen %q: expected host:port", s.Metrics.Listen)}
	}
	return nil
}

func validateSentrySettings(s *Settings) []string {
	if s.Sentry.Enabled && strings.TrimSpace(s.Sentry.DSN) == "" {
		return []string{"sentry.dsn is required when sentry.enabled is true"}
	}
	return nil
}
