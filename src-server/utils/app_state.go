package utils

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

type AppState struct {
	Config  *Config
	RawDB   *sql.DB
	BunDB   *bun.DB
	Clock   Clock
	Natural *Natural

	MetricChans *Metric

	// SIGINT/SIGTERM or a fatal server error lands here
	AppCloseSignalChan chan os.Signal

	shutdownMu    sync.Mutex
	shutdownChans []chan struct{}
}

func NewAppState() *AppState {
	as := &AppState{
		Config:             NewConfig(),
		Clock:              SystemClock{},
		Natural:            NewNatural(),
		MetricChans:        NewMetric(),
		AppCloseSignalChan: make(chan os.Signal, 1),
	}

	db, err := OpenDB(as.Config.GetDBPath() + "?mode=rwc")
	if err != nil {
		slog.Error("cannot open sqlite database", "error", err)
		os.Exit(1)
	}
	as.RawDB = db.DB
	as.BunDB = db
	return as
}

// OpenDB opens a sqlite database behind bun. Pass ":memory:" in tests.
func OpenDB(dsn string) (*bun.DB, error) {
	rawDB, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("OpenDB: %w", err)
	}
	// sqlite serializes writers anyway; one connection keeps an in-memory db shared
	rawDB.SetMaxOpenConns(1)

	bunDB := bun.NewDB(rawDB, sqlitedialect.New())
	bunDB.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.FromEnv("BUNDEBUG"),
	))
	return bunDB, nil
}

// CreateGracefulShutdownChan hands a long-running goroutine a channel that is
// closed once GracefulShutdown runs.
func (as *AppState) CreateGracefulShutdownChan() *chan struct{} {
	as.shutdownMu.Lock()
	defer as.shutdownMu.Unlock()
	ch := make(chan struct{})
	as.shutdownChans = append(as.shutdownChans, ch)
	return &ch
}

func (as *AppState) GracefulShutdown() {
	as.shutdownMu.Lock()
	for _, ch := range as.shutdownChans {
		close(ch)
	}
	as.shutdownChans = nil
	as.shutdownMu.Unlock()

	if as.BunDB != nil {
		if err := as.BunDB.Close(); err != nil {
			slog.Warn("can't close database", "error", err)
		}
	}
}
