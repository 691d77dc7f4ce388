package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/example/studylog/internal/internaltypes"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// Open picks the driver from the URL scheme: postgres:// and postgresql://
// go to pgx, sqlite://path, sqlite3://path, file: URIs and bare paths go to
// SQLite.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	dialect, dsn := ParseURL(databaseURL)

	var (
		conn *sql.DB
		err  error
	)
	switch dialect {
	case Postgres:
		conn, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(4)
		conn.SetConnMaxLifetime(5 * time.Minute)
		conn.SetConnMaxIdleTime(1 * time.Minute)
	case SQLite:
		conn, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, err
		}
		// one writer; avoids SQLITE_BUSY between pooled connections
		conn.SetMaxOpenConns(1)
	}

	d := &DB{conn: conn, dialect: dialect}
	if err := d.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return d, nil
}

// New wraps an already opened connection. Tests use it with sqlmock.
func New(conn *sql.DB, dialect Dialect) *DB {
	return &DB{conn: conn, dialect: dialect}
}

func ParseURL(databaseURL string) (Dialect, string) {
	u := strings.TrimSpace(databaseURL)
	switch {
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return Postgres, u
	case strings.HasPrefix(u, "sqlite3://"):
		return SQLite, sqliteDSN(strings.TrimPrefix(u, "sqlite3://"))
	case strings.HasPrefix(u, "sqlite://"):
		return SQLite, sqliteDSN(strings.TrimPrefix(u, "sqlite://"))
	default:
		return SQLite, sqliteDSN(u)
	}
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_foreign_keys=on&_busy_timeout=5000"
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return d.conn.PingContext(ctx)
}

func (d *DB) Dialect() Dialect { return d.dialect }

// SQL exposes the underlying pool for goose.
func (d *DB) SQL() *sql.DB { return d.conn }

// Builder returns a squirrel builder using the dialect's placeholders.
func (d *DB) Builder() sq.StatementBuilderType {
	if d.dialect == Postgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// Rebind rewrites ? placeholders into $n for Postgres.
func (d *DB) Rebind(query string) string {
	if d.dialect != Postgres {
		return query
	}
	out, err := sq.Dollar.ReplacePlaceholders(query)
	if err != nil {
		return query
	}
	return out
}

func (d *DB) Exec(ctx context.Context, query string, args ...any) error {
	_, err := d.conn.ExecContext(ctx, d.Rebind(query), args...)
	return err
}

func (d *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.conn.QueryRowContext(ctx, d.Rebind(query), args...)
}

func (d *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.conn.QueryContext(ctx, d.Rebind(query), args...)
}

var ErrNotFound = internaltypes.ErrNotFound

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}

func WrapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("db: %w", err)
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// either driver.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
