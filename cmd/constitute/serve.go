package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rbshaffer/constitute-tools/internal/api"
	"github.com/rbshaffer/constitute-tools/internal/config"
	"github.com/rbshaffer/constitute-tools/internal/pipeline"
	"github.com/spf13/cobra"
)

func serveCmd(g *globalFlags, cfg config.Config) *cobra.Command {
	var watchProfiles bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
			if err := cfg.Validate(); err != nil {
				log.Error("invalid configuration", "error", err)
				return err
			}
			return serve(cfg, log, watchProfiles)
		},
	}
	cmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "listen port")
	cmd.Flags().BoolVar(&watchProfiles, "watch-profiles", true, "reload profiles when their files change")
	return cmd
}

func serve(cfg config.Config, log *slog.Logger, watchProfiles bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	profiles, err := config.LoadProfiles(cfg.ProfileDir, log)
	if err != nil {
		return err
	}
	if watchProfiles {
		if err := profiles.Watch(); err != nil {
			log.Warn("profile watching disabled", "dir", cfg.ProfileDir, "error", err)
		}
		defer profiles.StopWatch()
	}

	orch := pipeline.NewOrchestrator(cfg, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, profiles, log, cfg)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
		orch.Stop()
	}()

	log.Info("starting constitute", "port", cfg.Port, "profiles", len(profiles.List()))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		return err
	}
	<-stopped
	return nil
}
