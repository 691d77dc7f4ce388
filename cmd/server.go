package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/studylog/internal/auth"
	"github.com/example/studylog/internal/config"
	"github.com/example/studylog/internal/db"
	"github.com/example/studylog/internal/logger"
	"github.com/example/studylog/internal/migrate"
	"github.com/example/studylog/internal/records"
	"github.com/example/studylog/internal/web"
	"github.com/spf13/cobra"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log := logger.New("server", cfg.LogLevel)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()
			log.Info().Str("dialect", string(d.Dialect())).Msg("database connected")

			if migrateUp {
				if err := migrate.Up(ctx, d, log); err != nil {
					return err
				}
			}

			ws, err := web.New(
				auth.NewStore(d),
				records.NewRepo(d),
				auth.NewSessions(cfg.CookieHashKey, cfg.CookieBlockKey),
				log,
			)
			if err != nil {
				return fmt.Errorf("web: %w", err)
			}
			return web.Start(ctx, cfg.ListenAddr, ws.Routes(), cfg.ShutdownTimeout, log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
