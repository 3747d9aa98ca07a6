package cmd

import "github.com/spf13/cobra"

// cfgFile is the server configuration, separate from the CLI user config.
var cfgFile string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

func init() {
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml",
		"Path to the server configuration file")
}
