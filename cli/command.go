package cli

import (
	"fmt"

	"github.com/kvesta/portvuln/config"
	"github.com/spf13/cobra"
)

const versions = "portvuln version 0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:   "portvuln [OPTIONS]",
		Short: "Port scan and CVE correlation",
		Long: `Portvuln scans a host for open ports, matches the detected services against a CVE catalog
               and rates the risk of what it found.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			settings, err = config.Load(configFile)
			return err
		},
	}

	configFile string
	settings   *config.Settings
)

func Execute() error {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information and quit",
		Args:  NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(versions)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "yaml or toml configure file")

	scan()
	catalog()

	rootCmd.AddCommand(versionCmd)
	return rootCmd.Execute()
}
