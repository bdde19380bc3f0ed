// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("audio.mode", "capture")
	v.SetDefault("audio.device", "")
	v.SetDefault("audio.samplerate", 48000)
	v.SetDefault("audio.channels", 2)
	v.SetDefault("audio.bitdepth", 16)

	v.SetDefault("buffer.duration", 5*time.Second)
	v.SetDefault("buffer.overflow", "keep")

	v.SetDefault("recorder.path", "capture.wav")
	v.SetDefault("recorder.quantum", 20*time.Millisecond)
	v.SetDefault("recorder.maxduration", time.Duration(0))

	v.SetDefault("playback.device", "")
	v.SetDefault("playback.gain", 1.0)
	v.SetDefault("playback.periodms", 10)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "localhost:9090")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.debug", false)
}
