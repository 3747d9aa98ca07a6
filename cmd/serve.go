package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/api"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/audit"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/auth"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/config"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/devops"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/policy"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/service"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/verifier"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		addr := cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		log.Info().Msg("Initializing token verifier...")
		inbound, err := verifier.Build(cmd.Context(), cfg.Verifier)
		if err != nil {
			return fmt.Errorf("building verifier: %w", err)
		}

		log.Info().Msg("Initializing delegated credential factory...")
		minter, err := auth.NewOnBehalfOfFactory(auth.OnBehalfOfConfig{
			TenantID:     cfg.Azure.TenantID,
			ClientID:     cfg.Azure.ClientID,
			ClientSecret: cfg.Azure.ClientSecret,
			Authority:    cfg.Azure.Authority,
		}, nil)
		if err != nil {
			return fmt.Errorf("building credential factory: %w", err)
		}

		auditor, err := audit.Build(cfg.Audit)
		if err != nil {
			return fmt.Errorf("building auditor: %w", err)
		}
		defer func() {
			_ = auditor.Close()
		}()

		devopsOpts := []devops.Option{devops.WithScopes(cfg.Azure.DownstreamScopes)}
		if cfg.DevOps.BaseURL != "" {
			devopsOpts = append(devopsOpts, devops.WithBaseURL(cfg.DevOps.BaseURL))
		}
		devopsClient := devops.NewClient(cfg.DevOps.Organization, devopsOpts...)

		var fallback core.TokenCredential
		if cfg.DevOps.PAT != "" {
			fallback, err = devops.NewPATCredential(cfg.DevOps.PAT)
			if err != nil {
				return fmt.Errorf("building fallback credential: %w", err)
			}
			log.Warn().Msg("PAT fallback configured, policy rules decide when it is used")
		}

		svc := service.NewDevOpsService(devopsClient, policy.New(cfg.Rules), fallback, auditor)
		srv := api.NewServer(inbound, minter, svc, auditor)

		server := &http.Server{
			Addr:    addr,
			Handler: srv.Routes(),
		}

		go func() {
			log.Info().Msgf("Starting server on %s...", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "address to listen on")
}
