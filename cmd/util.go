package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/cliconfig"
	"github.com/christopherhouse/azure-devops-ai-agent/pkg/client"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()

	greenCheck = color.New(color.FgGreen).Sprint("✓")
	redCross   = color.New(color.FgRed).Sprint("✗")
)

// BeQuietError signals that the error has already been reported to the user
// and only the exit code should change.
type BeQuietError struct{}

func (BeQuietError) Error() string {
	return "exiting due to previous error"
}

func logError(err error, correlation, msg string) error {
	if correlation != "" {
		log.Error().Msgf("%s %s (correlation ID: %s)", redCross, msg, correlation)
	} else {
		log.Error().Msgf("%s %s", redCross, msg)
	}
	log.Error().Msgf("error: %v", err)
	return BeQuietError{}
}

func logSuccess(format string, args ...any) {
	log.Info().Msgf(greenCheck+" "+format, args...)
}

var errAuthNotConfigured = errors.New("interactive authentication not configured")

// getClient returns a client for the configured server. When the Entra
// client settings are present, the client gets an authenticator so step-up
// challenges are handled transparently.
func getClient() (*client.Client, error) {
	server := viper.GetString(ServerAddrKey)
	if server == "" {
		return nil, fmt.Errorf("server address not configured (use --server or set AZDO_AGENT_ADDR)")
	}

	var token, refreshToken string
	if cfg, err := cliconfig.Load(); err == nil {
		if cred, err := cfg.GetCredential(server); err == nil { // token prio 1: saved credential
			token = cred.AccessToken
			refreshToken = cred.RefreshToken
		}
	}

	if envToken := os.Getenv("AZDO_AGENT_TOKEN"); envToken != "" { // token prio 2: env var
		token = envToken
	}

	opts := []client.Option{client.WithAuthToken(token)}
	authenticator, err := buildAuthenticator(server, refreshToken)
	if err == nil {
		opts = append(opts, client.WithAuthenticator(authenticator))
	} else if !errors.Is(err, errAuthNotConfigured) {
		return nil, err
	}

	return client.New(server, opts...), nil
}

func buildAuthenticator(server, refreshToken string) (*client.EntraAuthenticator, error) {
	tenantID := viper.GetString(AuthTenantKey)
	clientID := viper.GetString(AuthClientIDKey)
	if tenantID == "" || clientID == "" {
		return nil, errAuthNotConfigured
	}

	authenticator, err := client.NewEntraAuthenticator(client.EntraConfig{
		TenantID:     tenantID,
		ClientID:     clientID,
		Scopes:       viper.GetStringSlice(AuthScopesKey),
		RedirectAddr: viper.GetString(AuthRedirectAddrKey),
		RefreshToken: refreshToken,
	})
	if err != nil {
		return nil, err
	}

	authenticator.Prompt = func(authURL string) {
		fmt.Printf("\nOpen the following URL in your browser to sign in:\n\n  %s\n\n", bold(authURL))
	}
	authenticator.OnToken = func(token *oauth2.Token) {
		persistCredential(server, token)
	}
	return authenticator, nil
}

func persistCredential(server string, token *oauth2.Token) {
	cfg, err := cliconfig.Load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Msg("could not load credential store")
			return
		}
		cfg = &cliconfig.CLIConfig{}
	}
	if err := cfg.SetCredential(server, &cliconfig.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}); err != nil {
		log.Warn().Err(err).Msg("could not store credential")
		return
	}
	if err := cliconfig.Save(cfg); err != nil {
		log.Warn().Err(err).Msg("could not save credentials")
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
