package record

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/pcmring/internal/conf"
	"github.com/tphakala/pcmring/internal/pipeline"
	"github.com/tphakala/pcmring/internal/session"
)

// Command creates a new command that records the buffered input to a WAV
// file.
func Command(settings *conf.Settings) *cobra.Command {
	var source pipeline.SourceOptions

	cmd := &cobra.Command{
		Use:   "record [output.wav]",
		Short: "Record captured audio to a WAV file",
		Long: "Capture audio from the configured device, or replay a WAV or FLAC file, through the ring buffer " +
			"and write it to a WAV file until interrupted or until --max-duration is reached.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				settings.Recorder.Path = args[0]
			}
			return run(cmd, settings, source)
		},
	}

	// Set up flags specific to the 'record' command
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

	rec, err := session.NewRecorder(session.RecorderConfig{
		Path:        settings.Recorder.Path,
		Format:      src.Format(),
		Quantum:     settings.Recorder.Quantum,
		MaxDuration: settings.Recorder.MaxDuration,
	})
	if err != nil {
		_ = src.Close()
		return err
	}

	if err := pipeline.Run(cmd.Context(), settings, src, rec); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "recorded %s of %s to %s\n", rec.Recorded(), src.Format(), settings.Recorder.Path)
	return nil
}

// setupFlags configures flags specific to the record command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings, source *pipeline.SourceOptions) error {
	cmd.Flags().StringVar(&source.File, "input", "", "Replay this WAV or FLAC file instead of capturing from a device")
	cmd.Flags().BoolVar(&source.Realtime, "realtime", false, "Pace file replay at its sample rate instead of as fast as the recorder drains it")
	cmd.Flags().BoolVar(&source.Loop, "loop", false, "Restart file replay at end of file")
	cmd.Flags().DurationVar(&settings.Recorder.Quantum, "quantum", settings.Recorder.Quantum, "Recorder polling period")
	cmd.Flags().DurationVar(&settings.Recorder.MaxDuration, "max-duration", settings.Recorder.MaxDuration, "Stop after recording this much audio, 0 for no limit")

	// Bind flags to the viper settings
	if err := viper.BindPFlag("recorder.quantum", cmd.Flags().Lookup("quantum")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("recorder.maxduration", cmd.Flags().Lookup("max-duration")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
