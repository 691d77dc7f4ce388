package cmd

import (
	"context"
	"os"

	"github.com/example/studylog/internal/config"
	"github.com/example/studylog/internal/db"
	"github.com/example/studylog/internal/logger"
	"github.com/example/studylog/internal/migrate"
)

// openStore connects to DATABASE_URL and brings the schema up to date.
// Log output goes to stderr so command output stays parseable.
func openStore(ctx context.Context, role string) (*db.DB, *logger.Logger, error) {
	cfg, err := config.StoreFromEnv()
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewWithWriter(os.Stderr, role, cfg.LogLevel)

	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := migrate.Up(ctx, d, log); err != nil {
		_ = d.Close()
		return nil, nil, err
	}
	return d, log, nil
}
