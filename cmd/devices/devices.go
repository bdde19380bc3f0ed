package devices

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/pcmring/internal/capture"
	"github.com/tphakala/pcmring/internal/conf"
)

// Command creates a new command that lists audio devices.
func Command(settings *conf.Settings) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List audio devices",
		Long:  "List the devices available for capture, loopback or playback. The default device is marked with *.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode == "" {
				mode = settings.Audio.Mode
			}
			m, err := capture.ParseMode(mode)
			if err != nil {
				return err
			}
			devices, err := capture.ListDevices(m)
			if err != nil {
				return err
			}
			return printDevices(cmd.OutOrStdout(), m, devices)
		},
	}

	cmd.Flags().StringVar(&mode, "list-mode", "", "Device mode to list: capture, loopback or playback (default audio.mode)")

	return cmd
}

// printDevices writes devices as an aligned table
func printDevices(w io.Writer, mode capture.Mode, devices []capture.DeviceInfo) error {
	if len(devices) == 0 {
		_, err := fmt.Fprintf(w, "no %s devices found\n", mode)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tDEFAULT\tNAME\tID")
	for _, d := range devices {
		def := ""
		if d.Default {
			def = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.Index, def, d.Name, d.ID)
	}
	return tw.Flush()
}
