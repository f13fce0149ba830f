// Command zgw is the S3-compatible object-storage gateway's entry point:
// it loads configuration, opens the backend, starts the worker pool and
// the separate admin listener, and runs until signaled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/baotiao/zeppelin-gateway-go/internal/adminserver"
	"github.com/baotiao/zeppelin-gateway-go/internal/auth"
	"github.com/baotiao/zeppelin-gateway-go/internal/gwconfig"
	"github.com/baotiao/zeppelin-gateway-go/internal/gwctx"
	"github.com/baotiao/zeppelin-gateway-go/internal/gwpidfile"
	"github.com/baotiao/zeppelin-gateway-go/internal/gwpool"
	"github.com/baotiao/zeppelin-gateway-go/internal/router"
	"github.com/baotiao/zeppelin-gateway-go/internal/store"
)

func main() {
	if err := run(); err != nil {
		glog.Errorf("zgw: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}

func run() error {
	cli := gwconfig.RegisterFlags(flag.CommandLine)
	flag.Parse()
	defer glog.Flush()

	cfg, err := gwconfig.Load(cli.ConfigPath, cli)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lock, err := gwpidfile.Acquire(cfg.PidFile, cfg.LockFile)
	if err != nil {
		return fmt.Errorf("acquire pidfile/lockfile: %w", err)
	}
	defer lock.Close()

	// The reference backend is a single embedded buntdb file; every
	// worker is handed the same *BuntStore instance here rather than
	// calling store.OpenBunt per worker, a documented deviation from
	// spec §5's "exclusive per worker" handle model (see DESIGN.md's
	// Open Question resolutions: opening multiple buntdb instances
	// against one file risks corrupting it, unlike a real distributed
	// backend where StoreOpener would open a distinct connection per
	// worker).
	backend, err := store.OpenBunt(dataFilePath(cfg))
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer backend.Close()

	opener := func(workerID int) (store.Store, error) {
		return backend, nil
	}

	ctx := gwctx.New()
	rt := router.New(ctx, auth.AccessKeyOnly{})

	pool := gwpool.New(cfg.WorkerNum, opener, rt, cfg.RedisIPPort, cfg.RedisPasswd, cfg.ServerPort)
	pool.Run()
	defer pool.Stop()

	go ctx.Monitor.Run()
	defer ctx.Monitor.Stop()

	reg := prometheus.NewRegistry()
	ctx.Monitor.Register(reg)

	adminSrv := adminserver.New(fmt.Sprintf("%s:%d", cfg.ServerIP, cfg.AdminPort), backend, reg)
	go func() {
		if err := adminSrv.ListenAndServe(); err != nil {
			glog.Errorf("admin listener: %v", err)
		}
	}()
	defer adminSrv.Shutdown()

	clientSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.ServerIP, cfg.ServerPort),
		Handler: pool,
	}
	go func() {
		if err := clientSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Errorf("client listener: %v", err)
		}
	}()

	glog.Infof("zgw: listening client=%s:%d admin=%s:%d workers=%d",
		cfg.ServerIP, cfg.ServerPort, cfg.ServerIP, cfg.AdminPort, cfg.WorkerNum)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	glog.Infof("zgw: shutting down")
	return clientSrv.Shutdown(context.Background())
}

func dataFilePath(cfg *gwconfig.Config) string {
	if cfg.ZPTableName == "" {
		return "zgw.db"
	}
	return cfg.ZPTableName + ".db"
}
