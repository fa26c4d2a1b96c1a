package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tysonq/taxmate/internal/config"
)

type DB struct {
	pool *pgxpool.Pool
}

func NewDB(cfg *config.Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}

	poolConfig.MaxConns = cfg.DatabaseMaxConns
	poolConfig.MinConns = cfg.DatabaseMinConns
	poolConfig.MaxConnLifetime = cfg.DatabaseMaxConnLife
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) Close() {
	db.pool.Close()
}

func (db *DB) HealthCheck(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *DB) Stats() *pgxpool.Stat {
	return db.pool.Stat()
}

// InitSchema creates the tables if they do not exist. Idempotent, run
// on startup.
func (db *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("initialising schema: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		id UUID PRIMARY KEY,
		trade_date DATE NOT NULL,
		code TEXT NOT NULL,
		action TEXT NOT NULL,
		units NUMERIC NOT NULL,
		price NUMERIC NOT NULL,
		fee NUMERIC NOT NULL,
		owner TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_code_date ON trades (code, trade_date)`,
	`CREATE TABLE IF NOT EXISTS gains (
		id UUID PRIMARY KEY,
		fy INT NOT NULL,
		code TEXT NOT NULL,
		units NUMERIC NOT NULL,
		sell_date DATE NOT NULL,
		raw_profit NUMERIC NOT NULL,
		taxable_gain NUMERIC NOT NULL,
		reason TEXT NOT NULL,
		owner TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_gains_fy ON gains (fy)`,
	`CREATE TABLE IF NOT EXISTS deductions (
		id UUID PRIMARY KEY,
		fy INT NOT NULL,
		category TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		rate NUMERIC NOT NULL,
		rate_basis TEXT NOT NULL,
		owner TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deductions_fy ON deductions (fy)`,
}
