package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"connwatch/internal/config"
	"connwatch/internal/monitor"
	"connwatch/internal/peers"
	"connwatch/internal/platform"
	"connwatch/internal/server"
	"connwatch/internal/storage"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to configuration file (YAML)")
		addr       = flag.String("addr", ":8080", "address for the web server")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	historyPath := filepath.Join(cfg.DataDirectory, "transitions.json")
	store, err := storage.NewTransitionStorage(historyPath, cfg.HistoryLimit)
	if err != nil {
		log.Fatalf("initialise storage: %v", err)
	}

	api := platform.NewSystem(cfg.PlatformOptions())
	mon := monitor.New(api, store, cfg.HistoryLimit)
	if err := mon.Start(); err != nil {
		log.Fatalf("start connectivity monitor: %v", err)
	}
	defer mon.Stop()

	node := peers.Node{ID: cfg.NodeID, Name: cfg.NodeName}
	peerSvc := peers.NewService(node, mon, cfg)
	peerSvc.Start()
	defer peerSvc.Stop()

	srv := server.New(*addr, node, mon, peerSvc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("connwatch listening on %s (state: %s)", *addr, mon.Current().Label())
	if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
