package cmd

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/auth"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/config"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/devops"
)

var exchangeCmd = &cobra.Command{
	Use:   "exchange USER-ASSERTION",
	Short: "Exchange a user assertion for a delegated token locally",
	Long: `Test command that runs the on-behalf-of exchange directly against the
configured tenant, bypassing the API server. Useful to verify the client
registration and to inspect step-up challenges.`,
	Example: `  azdo-agent debug exchange <JWT token> -c config.yaml`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		minter, err := auth.NewOnBehalfOfFactory(auth.OnBehalfOfConfig{
			TenantID:     cfg.Azure.TenantID,
			ClientID:     cfg.Azure.ClientID,
			ClientSecret: cfg.Azure.ClientSecret,
			Authority:    cfg.Azure.Authority,
		}, nil)
		if err != nil {
			return err
		}

		cred, err := minter.Mint(args[0])
		if err != nil {
			return fmt.Errorf("minting credential: %w", err)
		}

		scopes := cfg.Azure.DownstreamScopes
		if len(scopes) == 0 {
			scopes = []string{devops.DefaultScope}
		}

		token, err := cred.GetToken(cmd.Context(), scopes)
		if err != nil {
			var challenge *auth.StepUpChallengeError
			if errors.As(err, &challenge) {
				log.Warn().Msgf("exchange requires step-up (%s)", challenge.ErrorCode)
				log.Warn().Msgf("classification: %s", challenge.Classification)
				log.Warn().Msgf("correlation ID: %s", challenge.CorrelationID)
				log.Warn().Msgf("claims challenge: %s", challenge.ClaimsChallenge)
				return BeQuietError{}
			}
			return fmt.Errorf("exchange failed: %w", err)
		}

		logSuccess("delegated token acquired, expires %s", token.ExpiresOn.Format("2006-01-02 15:04:05"))
		fmt.Println(token.Token)
		return nil
	},
}

func init() {
	debugCmd.AddCommand(exchangeCmd)
}
