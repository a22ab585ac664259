package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/moviemeta/internal/httpapi"
	"github.com/Sternrassler/moviemeta/pkg/logging"
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the metadata HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger := logging.Setup(cfg.LoggingConfig())

			p, err := newPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pingCtx, cancel := context.WithTimeout(runCtx, 5*time.Second)
			err = p.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Error().Err(err).Msg("Failed to connect to Redis")
				return err
			}

			var inbound *httpapi.ClientLimiter
			if cfg.Server.InboundRatePerSecond > 0 {
				inbound = httpapi.NewClientLimiter(cfg.Server.InboundRatePerSecond, cfg.Server.InboundBurst)
				inbound.StartJanitor(runCtx, httpapi.DefaultCleanupEvery)
			}

			srv := &http.Server{
				Addr: cfg.Server.Addr,
				Handler: httpapi.NewRouter(httpapi.Config{
					Enricher:     p.enricher,
					ServerAPIKey: cfg.TMDB.APIKey,
					Ready:        p.Ping,
					Inbound:      inbound,
					MaxBodyBytes: cfg.Server.MaxBodyBytes,
					Logger:       logging.NewLogger("httpapi"),
				}),
				ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
				WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().
					Str("addr", cfg.Server.Addr).
					Bool("server_key", cfg.TMDB.APIKey != "").
					Bool("shared_window", p.redis != nil).
					Int("max_titles_per_request", cfg.TitlesWithinWriteTimeout()).
					Msg("Starting moviemeta API")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("http server: %w", err)
			case <-runCtx.Done():
			}

			logger.Info().Msg("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(),
				time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
}
