package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"

	auth "github.com/goliatone/go-authflow"
	"github.com/goliatone/go-authflow/activitymap"
	"github.com/goliatone/go-authflow/postgres"
)

const defaultSQLiteDSN = "file:authflow.db?cache=shared"

// userWriter is implemented by every bundled store; authctl uses it to
// seed users
type userWriter interface {
	Insert(ctx context.Context, user *auth.User) (*auth.User, error)
}

// app holds what a command needs: config, logger and the assembled
// components, plus the handles to release on exit
type app struct {
	cfg        auth.Config
	log        *zap.Logger
	components *auth.Components
	bunDB      *bun.DB
	pgPool     *pgxpool.Pool
	closers    []func()
}

// newApp loads settings and assembles the components. withStore=false
// swaps the store for an empty in-memory one, for commands that never
// touch users.
func (o *rootOptions) newApp(cmd *cobra.Command, withStore bool) (*app, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(o.logLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	provider := auth.ZapProvider(log)
	opts := []auth.AssembleOption{
		auth.WithLoggerProvider(provider),
		auth.WithActivitySink(activitymap.LogSink(
			provider.GetLogger("activity"),
			activitymap.WithRedactedKeys("credential"),
		)),
	}

	if !withStore {
		opts = append(opts, auth.WithStore(auth.NewMemoryUserStore()))
	} else if err := a.openStore(cmd.Context(), &opts); err != nil {
		a.Close()
		return nil, err
	}

	components, err := auth.Assemble(cfg, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.components = components
	a.closers = append(a.closers, func() { _ = components.Close() })
	return a, nil
}

func (a *app) openStore(ctx context.Context, opts *[]auth.AssembleOption) error {
	switch a.cfg.DatabaseAdapter {
	case auth.DatabaseAdapterBun:
		dsn := a.cfg.DatabaseURL.Reveal()
		if dsn == "" {
			dsn = defaultSQLiteDSN
		}
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return oops.Code("DB_CONNECT_FAILED").With("adapter", "bun").Wrap(err)
		}
		a.bunDB = bun.NewDB(sqldb, sqlitedialect.New())
		a.closers = append(a.closers, func() { _ = a.bunDB.Close() })
		*opts = append(*opts, auth.WithBunDB(a.bunDB))

	case postgres.Reference:
		dsn := a.cfg.DatabaseURL.Reveal()
		if dsn == "" {
			return oops.Code("CONFIG_INVALID").Errorf("database_url is required for the postgres adapter")
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return oops.Code("DB_CONNECT_FAILED").With("adapter", "postgres").Wrap(err)
		}
		a.pgPool = pool
		a.closers = append(a.closers, pool.Close)

		reg := auth.DefaultRegistry()
		if err := postgres.Register(reg, pool); err != nil {
			return err
		}
		*opts = append(*opts, auth.WithRegistry(reg))
	}

	return nil
}

// Close releases everything the app opened, last opened first
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// users returns the store as a userWriter
func (a *app) users() (userWriter, error) {
	w, ok := a.components.Store.(userWriter)
	if !ok {
		return nil, fmt.Errorf("store %T cannot insert users", a.components.Store)
	}
	return w, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}
