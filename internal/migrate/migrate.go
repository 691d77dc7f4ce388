package migrate

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/example/studylog/internal/db"
	"github.com/example/studylog/internal/logger"
	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var fs embed.FS

// goose keeps its dialect, base FS and logger in package globals.
var mu sync.Mutex

// Up applies every pending migration for the database's dialect. Running it
// against an up-to-date schema is a no-op.
func Up(ctx context.Context, d *db.DB, log *logger.Logger) error {
	if d == nil {
		return errors.New("migrate: db is nil")
	}
	dir, err := dirFor(d.Dialect())
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(fs)
	goose.SetLogger(gooseLogger{log})
	if err := goose.SetDialect(string(d.Dialect())); err != nil {
		return fmt.Errorf("migrate: set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, d.SQL(), dir); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Version returns the latest applied migration version.
func Version(ctx context.Context, d *db.DB) (int64, error) {
	mu.Lock()
	defer mu.Unlock()

	if err := goose.SetDialect(string(d.Dialect())); err != nil {
		return 0, fmt.Errorf("migrate: set dialect: %w", err)
	}
	return goose.GetDBVersionContext(ctx, d.SQL())
}

func dirFor(dialect db.Dialect) (string, error) {
	switch dialect {
	case db.Postgres:
		return "postgres", nil
	case db.SQLite:
		return "sqlite", nil
	}
	return "", fmt.Errorf("migrate: unsupported dialect %q", dialect)
}

type gooseLogger struct{ log *logger.Logger }

func (g gooseLogger) Printf(format string, v ...any) {
	g.log.Info().Str("component", "goose").Msgf(strings.TrimSpace(format), v...)
}

// Fatalf does not exit: Up reports the failure through its error.
func (g gooseLogger) Fatalf(format string, v ...any) {
	g.log.Error().Str("component", "goose").Msgf(strings.TrimSpace(format), v...)
}
