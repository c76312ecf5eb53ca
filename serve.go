package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ptgott/one-record/accessor"
	"github.com/ptgott/one-record/server"
	"github.com/ptgott/one-record/storage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	log.Info().
		Str("configPath", flags.ConfigPath).
		Msg("starting the application")

	config, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := storage.NewDatabase(&config.Storage)
	if err != nil {
		return err
	}
	// Close the database last so Badger can flush to disk
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("error closing the database")
			return
		}
		log.Info().Msg("closed the database")
	}()
	log.Info().
		Str("backend", string(config.Storage.Backend)).
		Str("namespace", config.Storage.Namespace).
		Msg("set up the database connection successfully")

	// Stop on an interrupt or SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	srv := server.New(config.Server, accessor.New(db), server.StoreHealth(db))
	g.Go(func() error {
		return srv.Serve(ctx)
	})
	g.Go(func() error {
		storage.CleanupLoop(ctx, db, config.Storage.CleanupInterval)
		return nil
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("interrupt: exiting")
	return nil
}
