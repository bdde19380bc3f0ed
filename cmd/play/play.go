package play

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/pcmring/internal/conf"
	"github.com/tphakala/pcmring/internal/pipeline"
	"github.com/tphakala/pcmring/internal/session"
)

// Command creates a new command that plays the buffered input on an output
// device with gain.
func Command(settings *conf.Settings) *cobra.Command {
	var source pipeline.SourceOptions

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play captured audio on an output device",
		Long: "Capture audio from the configured device, or replay a WAV file, through the ring buffer " +
			"and render it on an output device with gain. Shortfalls are padded with silence.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// file replay must follow the output clock, not the disk
			if source.File != "" {
				source.Realtime = true
			}
			return run(cmd, settings, source)
		},
	}

	// Set up flags specific to the 'play' command
	if err := setupFlags(cmd, settings, &source); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings, source pipeline.SourceOptions) error {
	src, err := pipeline.OpenSource(settings, source)
	if err != nil {
		return err
	}

	p, err := session.NewPlayback(session.PlaybackConfig{
		Device:   settings.Playback.Device,
		Format:   src.Format(),
		Gain:     settings.Playback.Gain,
		PeriodMs: settings.Playback.PeriodMs,
	})
	if err != nil {
		_ = src.Close()
		return err
	}

	if err := pipeline.Run(cmd.Context(), settings, src, p); err != nil {
		return err
	}

	if n := p.Underruns(); n > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "playback finished with %d underruns\n", n)
	}
	return nil
}

// setupFlags configures flags specific to the play command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings, source *pipeline.SourceOptions) error {
	cmd.Flags().StringVar(&source.File, "input", "", "Replay this WAV file instead of capturing from a device")
	cmd.Flags().BoolVar(&source.Loop, "loop", false, "Restart file replay at end of file")
	cmd.Flags().StringVar(&settings.Playback.Device, "output", settings.Playback.Device, "Output device name, ID or substring; empty for the default")
	cmd.Flags().Float64Var(&settings.Playback.Gain, "gain", settings.Playback.Gain, "Linear gain applied to samples")
	cmd.Flags().Uint32Var(&settings.Playback.PeriodMs, "period", settings.Playback.PeriodMs, "Output device period in milliseconds, 0 for the backend default")

	// Bind flags to the viper settings
	for key, flag := range map[string]string{
		"playback.device":   "output",
		"playback.gain":     "gain",
		"playback.periodms": "period",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
	}

	return nil
}
