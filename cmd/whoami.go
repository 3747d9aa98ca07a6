package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity the server resolved for the current credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		log.Info().Msg("Fetching identity from server...")
		principal, correlation, err := cli.Me(cmd.Context())
		if err != nil {
			return logError(err, correlation, "failed to resolve identity")
		}

		fmt.Println(bold("\n── Identity ──"))
		fmt.Printf("  %s:       %s\n", faint("Subject"), principal.ID)
		if principal.Name != "" {
			fmt.Printf("  %s:          %s\n", faint("Name"), principal.Name)
		}
		if principal.Email != "" {
			fmt.Printf("  %s:         %s\n", faint("Email"), principal.Email)
		}
		if principal.PreferredUsername != "" {
			fmt.Printf("  %s:      %s\n", faint("Username"), principal.PreferredUsername)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func principalLabel(principal *core.Principal) string {
	switch {
	case principal.Name != "":
		return principal.Name
	case principal.Email != "":
		return principal.Email
	default:
		return principal.ID
	}
}
