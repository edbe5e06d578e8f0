// mdbmgo-admind opens a database and serves its admin/inspection HTTP
// surface (metrics, health, stats, optional pprof). It replaces a
// gRPC-fronted cmd/treestore/main.go with a plain local admin daemon over
// a flag-parsed-main shape (flag.Parse, signal.Notify for graceful
// shutdown, defer Close) -- there is no RPC surface in this module's
// scope, so no grpc.Server / reflection here.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nainya/mdbmgo/internal/admin"
	"github.com/nainya/mdbmgo/internal/config"
	"github.com/nainya/mdbmgo/internal/logger"
	"github.com/nainya/mdbmgo/internal/metrics"
	"github.com/nainya/mdbmgo/pkg/mdbm"
)

var (
	dbPath     = flag.String("db", "mdbmgo.db", "database file path")
	configPath = flag.String("config", "", "path to a YAML config file")
	create     = flag.Bool("create", false, "create the database if it does not exist")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.InitGlobalLogger(logger.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})
	lg := logger.GetGlobalLogger()

	var handle *mdbm.Handle
	if *create {
		if _, statErr := os.Stat(*dbPath); os.IsNotExist(statErr) {
			handle, err = mdbm.Create(*dbPath, mdbm.Options{
				PageSize:      cfg.Database.PageSize,
				HashID:        cfg.Database.HashID(),
				LockMode:      cfg.Database.LockModeValue(),
				NumPartitions: cfg.Database.NumPartitions,
				CachePolicy:   cfg.Database.CachePolicyValue(),
				LargeObjects:  cfg.Database.LargeObjects,
				LimitPages:    cfg.Database.LimitPages,
			})
		}
	}
	if handle == nil {
		handle, err = mdbm.Open(*dbPath, false, cfg.Database.LockModeValue(), cfg.Database.NumPartitions, 0)
	}
	if err != nil {
		lg.Fatal("failed to open database").Str("path", *dbPath).Err(err).Send()
	}
	defer handle.Close()

	m := metrics.NewMetrics()
	handle.SetMetrics(m)

	srv := admin.New(cfg.Admin.ListenAddr, cfg.Admin.EnablePprof, lg, handle, m)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		lg.Info("shutting down gracefully").Send()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	if err := srv.Start(); err != nil {
		lg.Fatal("admin server failed").Err(err).Send()
	}
}
