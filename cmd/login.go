package cmd

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/christopherhouse/azure-devops-ai-agent/pkg/client"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to Microsoft Entra ID and save credentials",
	Long: `Runs an interactive browser sign-in against the configured Entra ID tenant.
The resulting tokens are saved locally so later commands can authenticate
silently, including reacquisitions triggered by step-up challenges.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := viper.GetString(ServerAddrKey)
		if server == "" {
			return fmt.Errorf("server address not configured, provide via --server or env")
		}
		u, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("parsing server URL: %w", err)
		}

		authenticator, err := buildAuthenticator(server, "")
		if err != nil {
			if errors.Is(err, errAuthNotConfigured) {
				return fmt.Errorf("auth.tenant_id and auth.client_id must be configured for login")
			}
			return err
		}

		log.Info().Msgf("Signing in for server %q...", u.Host)

		token, err := authenticator.Interactive(cmd.Context(), nil, "")
		if err != nil {
			return logError(err, "", "sign-in failed")
		}

		// verify the token against the server before declaring success
		cli := client.New(server, client.WithAuthToken(token))
		principal, correlation, err := cli.Me(cmd.Context())
		if err != nil {
			return logError(err, correlation, "signed in, but the server rejected the token")
		}

		logSuccess("signed in as %s", bold(principalLabel(principal)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
