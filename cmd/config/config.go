package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/pcmring/internal/conf"
)

// Command creates the config command group.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(showCommand(settings))
	return cmd
}

func showCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long:  "Print the configuration after applying the config file, PCMRING_* environment variables and flags. Secrets are masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := settings.RenderYAML()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if path := conf.FindConfigFile(); path != "" {
				fmt.Fprintf(out, "# config file: %s\n", path)
			} else {
				fmt.Fprintln(out, "# config file: none, using defaults")
			}
			_, err = out.Write(data)
			return err
		},
	}
}
