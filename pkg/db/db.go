package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hallbooking/pkg/config"
)

// Open builds the runtime pool and pings it once.
func Open(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	pcfg, err := poolConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("db config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

func poolConfig(cfg config.Config) (*pgxpool.Config, error) {
	connString, pooled := stripPgBouncer(runtimeConnString(cfg))

	pcfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	if pooled {
		// Transaction-mode PgBouncer can't hold prepared statements across transactions.
		pcfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
		pcfg.ConnConfig.StatementCacheCapacity = 0
		pcfg.ConnConfig.DescriptionCacheCapacity = 0
	}
	if cfg.DB.MaxConns > 0 {
		pcfg.MaxConns = cfg.DB.MaxConns
	}
	pcfg.MaxConnIdleTime = 5 * time.Minute
	pcfg.HealthCheckPeriod = 30 * time.Second
	pcfg.ConnConfig.RuntimeParams["application_name"] = "hallbooking"
	return pcfg, nil
}

// stripPgBouncer removes the pgbouncer=true marker, which is not a Postgres
// parameter, and reports whether it was present.
func stripPgBouncer(connString string) (string, bool) {
	u, err := url.Parse(connString)
	if err != nil || u.Scheme == "" {
		return connString, false
	}
	q := u.Query()
	pooled := strings.EqualFold(q.Get("pgbouncer"), "true")
	if !q.Has("pgbouncer") {
		return connString, false
	}
	q.Del("pgbouncer")
	u.RawQuery = q.Encode()
	return u.String(), pooled
}

// WithTx runs fn in a read-committed transaction. It commits only when fn
// returns nil, and returns fn's error unwrapped so callers can match on it.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	return WithTxOptions(ctx, pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func WithTxOptions(ctx context.Context, pool *pgxpool.Pool, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// No-op after a successful commit.
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func runtimeConnString(cfg config.Config) string {
	if s := strings.TrimSpace(cfg.DatabaseURL); s != "" {
		return s
	}
	return cfg.DB.URL()
}

// migrationConnString prefers DIRECT_URL, since migrations need session-level
// locks a transaction pooler won't give them.
func migrationConnString(cfg config.Config) string {
	if s := strings.TrimSpace(cfg.DirectURL); s != "" {
		return s
	}
	s, _ := stripPgBouncer(runtimeConnString(cfg))
	return s
}
