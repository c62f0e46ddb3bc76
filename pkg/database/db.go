package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Queryer is the query surface shared by the live connection and an open
// transaction. Repositories always obtain one through QueryerFrom so that
// calls made inside a reconciliation all land on the same transaction.
type Queryer interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
}

type DB interface {
	Queryer
	PingContext(ctx context.Context) error
	Close() error
	Unsafe() *sqlx.DB
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, Tx, error)
}

type ConnectionConfig struct {
	Host            string
	Port            string
	UserName        string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c ConnectionConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.UserName, c.Password, c.Name, c.SSLMode)
}

type Instance struct {
	*sqlx.DB
	logger ectologger.Logger
}

func NewInstance(db *sqlx.DB, logger ectologger.Logger) DB {
	return &Instance{
		DB:     db,
		logger: logger,
	}
}

// Connect opens a Postgres connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg ConnectionConfig, logger ectologger.Logger) (DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while connecting to database %s", cfg.Name)
		return nil, fmt.Errorf("error while connecting to database %s: %w", cfg.Name, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return NewInstance(db, logger), nil
}

func (db *Instance) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, Tx, error) {
	return GetTx(ctx, db.logger, db.DB, opts)
}

// QueryerFrom returns the transaction carried by ctx when one is open,
// otherwise the fallback connection.
func QueryerFrom(ctx context.Context, fallback Queryer) Queryer {
	if tx, ok := txFromContext(ctx); ok && tx.isOpen() {
		return tx.tx
	}
	return fallback
}
