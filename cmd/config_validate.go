package cmd

import (
	"github.com/spf13/cobra"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/config"
)

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the server configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Load(cfgFile); err != nil {
			return logError(err, "", "configuration is invalid")
		}
		logSuccess("configuration is valid")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}
