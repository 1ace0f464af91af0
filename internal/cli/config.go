package cli

import (
	"encoding/json"
	"fmt"

	"github.com/europython/sponsorbot/pkg/sponsors"
	"github.com/spf13/cobra"
)

var configTemplate bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the sponsors plugin settings",
	Long: `Print the effective sponsors plugin settings as JSON: the defaults merged
with the overrides from the config file. With --template only the defaults
are printed.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configTemplate, "template", false, "print the default settings only")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	p, log, err := newPlugin()
	if err != nil {
		return err
	}
	defer log.Close()

	var settings sponsors.Settings
	if configTemplate {
		settings = p.ConfigurationTemplate()
	} else {
		settings = p.Settings()
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
