package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/show-scraper/internal/metrics"
	"github.com/pfrederiksen/show-scraper/internal/server"
	"github.com/pfrederiksen/show-scraper/internal/storage"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr, databaseURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored events over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.settings()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				s.ListenAddr = addr
			}
			if cmd.Flags().Changed("database-url") {
				s.DatabaseURL = databaseURL
			}
			if s.DatabaseURL == "" {
				return errors.New("serve needs a database url (--database-url or DATABASE_URL)")
			}
			if err := setupLogging(s, cmd.ErrOrStderr()); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := storage.Open(s.DatabaseURL, s.DatabaseToken)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := storage.Migrate(ctx, db); err != nil {
				return err
			}

			srv := server.New(storage.NewStore(db), server.WithMetrics(metrics.New().Handler()))
			return srv.ListenAndServe(ctx, s.ListenAddr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default :4567)")
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "SQLite path or libsql:// URL")
	return cmd
}
