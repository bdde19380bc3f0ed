package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configcmd "github.com/tphakala/pcmring/cmd/config"
	"github.com/tphakala/pcmring/cmd/devices"
	"github.com/tphakala/pcmring/cmd/play"
	"github.com/tphakala/pcmring/cmd/record"
	"github.com/tphakala/pcmring/internal/buildinfo"
	"github.com/tphakala/pcmring/internal/conf"
	"github.com/tphakala/pcmring/internal/logger"
	"github.com/tphakala/pcmring/internal/telemetry"
)

// telemetryFlushTimeout bounds how long exit waits for queued error reports
const telemetryFlushTimeout = 2 * time.Second

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pcmring",
		Short:         "Capture, buffer, record and replay PCM audio",
		Long:          "pcmring moves PCM audio from a capture device or WAV file through a block-aligned ring buffer into a recorder or a playback device.",
		Version:       build.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate(build.String() + "\n")

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		record.Command(settings),
		play.Command(settings),
		devices.Command(settings),
		configcmd.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(settings, build)
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		telemetry.Flush(telemetryFlushTimeout)
		_ = logger.Global().Flush()
	}

	return rootCmd
}

// initialize runs after flags are parsed and before any subcommand. Flags have
// already been written into settings, so they are validated again here.
func initialize(settings *conf.Settings, build *buildinfo.Context) error {
	if err := conf.ValidateSettings(settings); err != nil {
		return err
	}

	level := settings.Log.Level
	if settings.Debug {
		level = "debug"
	}
	if _, err := logger.InitGlobal(logger.Config{Level: level, JSON: settings.Log.JSON}); err != nil {
		return err
	}

	return telemetry.Init(settings, build)
}

// flagBinding ties a command line flag to its configuration key
type flagBinding struct {
	key  string
	flag string
}

// setupFlags defines flags that are global to the command line interface.
// Flag defaults are the loaded settings, so a flag only overrides what the
// config file and environment already set.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	flags.StringVar(&settings.Log.Level, "log-level", settings.Log.Level, "Log level: debug, info, warn or error")
	flags.BoolVar(&settings.Log.JSON, "log-json", settings.Log.JSON, "Log in JSON instead of console text")

	flags.StringVar(&settings.Audio.Mode, "mode", settings.Audio.Mode, "Device mode for input: capture or loopback")
	flags.StringVar(&settings.Audio.Device, "device", settings.Audio.Device, "Input device name, ID or substring; empty for the default")
	flags.IntVar(&settings.Audio.SampleRate, "samplerate", settings.Audio.SampleRate, "Sample rate in Hz")
	flags.IntVar(&settings.Audio.Channels, "channels", settings.Audio.Channels, "Number of interleaved channels")
	flags.IntVar(&settings.Audio.BitDepth, "bitdepth", settings.Audio.BitDepth, "Bits per sample: 16, 24 or 32")

	flags.DurationVar(&settings.Buffer.Duration, "buffer", settings.Buffer.Duration, "Audio held by the ring buffer")
	flags.StringVar(&settings.Buffer.Overflow, "overflow", settings.Buffer.Overflow, "Overflow policy: keep (overwrite oldest) or ignore (drop newest)")

	flags.BoolVar(&settings.Metrics.Enabled, "metrics", settings.Metrics.Enabled, "Serve Prometheus metrics and status")
	flags.StringVar(&settings.Metrics.Listen, "listen", settings.Metrics.Listen, "Listen address of the metrics endpoint")

	for _, b := range []flagBinding{
		{"debug", "debug"},
		{"log.level", "log-level"},
		{"log.json", "log-json"},
		{"audio.mode", "mode"},
		{"audio.device", "device"},
		{"audio.samplerate", "samplerate"},
		{"audio.channels", "channels"},
		{"audio.bitdepth", "bitdepth"},
		{"buffer.duration", "buffer"},
		{"buffer.overflow", "overflow"},
		{"metrics.enabled", "metrics"},
		{"metrics.listen", "listen"},
	} {
		if err := viper.BindPFlag(b.key, flags.Lookup(b.flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", b.flag, err)
		}
	}

	return nil
}
