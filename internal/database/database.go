// FilePath: internal/database/database.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/config"
	"github.com/jmoiron/sqlx"
	"github.com/juju/clock"
	"github.com/juju/retry"
	_ "github.com/lib/pq"
	nuts "github.com/vaudience/go-nuts"
)

// DB is the connection the direct Postgres backend runs on
type DB interface {
	Close() error
	Ping(ctx context.Context) error
	GetDB() *sqlx.DB
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// PostgresDB represents a PostgreSQL database connection
type PostgresDB struct {
	db *sqlx.DB
}

// NewPostgresDB connects to PostgreSQL, retrying while the server is not
// reachable yet.
func NewPostgresDB(ctx context.Context, cfg config.PostgresConfig, clk clock.Clock) (DB, error) {
	var db *sqlx.DB
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			var err error
			db, err = sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
			return err
		},
		Attempts: max(cfg.ConnectTries, 1),
		Delay:    cfg.ConnectDelay,
		Clock:    clk,
		Stop:     ctx.Done(),
		NotifyFunc: func(lastErr error, attempt int) {
			nuts.L.Warnf("[PostgresDB] Connection attempt %d to %s:%d failed: %v", attempt, cfg.Host, cfg.Port, lastErr)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to PostgreSQL: %w", retry.LastError(err))
	}

	nuts.L.Infof("[PostgresDB] Connected to %s:%d/%s", cfg.Host, cfg.Port, cfg.DBName)
	return &PostgresDB{db: db}, nil
}

func (p *PostgresDB) Close() error {
	return p.db.Close()
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresDB) GetDB() *sqlx.DB {
	return p.db
}

func (p *PostgresDB) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}
