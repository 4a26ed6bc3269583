package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"lingua-link/observability"
	"lingua-link/projection"
	"lingua-link/runtime/workers"
	"lingua-link/services"
	"lingua-link/sink"
	"lingua-link/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the process lifecycle, and
// centralizes error reporting so deferred cleanup always executes.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB) backing the local tree store
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	treeStore := store.NewBadgerStore(db, log)

	// 3. Services
	sessions := services.NewSessionRegistry()
	connect := services.NewConnectService(treeStore, log, sessions)
	if config.GuardTransitions {
		connect = connect.WithTransitionGuard()
	}
	feed := projection.NewFeed(treeStore, log)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Stream the conversation feed and signaling events. The fan-out is
	// the process boundary: a real presentation layer would render, this
	// binary logs and counts.
	monitor := observability.NewMonitor(log, config.StatsInterval)
	events := sink.NewFanout(sink.NewLogSink(log), monitor)

	watch, err := feed.Watch(ctx, config.SelfID, events)
	if err != nil {
		return fmt.Errorf("feed watch failed: %w", err)
	}
	defer watch.Close()

	listener, err := connect.Listen(ctx, config.SelfID, events)
	if err != nil {
		return fmt.Errorf("signaling listen failed: %w", err)
	}
	defer listener.Close()

	// 6. Background workers: periodic stats, and the optional retention
	// sweep. Requests are kept forever unless a retention is configured.
	sup := workers.NewSupervisor(log)
	sup.Add(monitor)
	if config.RequestRetention > 0 {
		sup.Add(workers.NewRequestSweeper(log, treeStore, config.RequestRetention, config.SweepInterval))
	}

	log.Info("lingua-link started", "self", config.SelfID)
	sup.Run(ctx)
	<-ctx.Done()
	return nil
}
