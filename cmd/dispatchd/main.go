package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/deskline/deskline-dispatch/internal/clock"
	"github.com/deskline/deskline-dispatch/internal/config"
	"github.com/deskline/deskline-dispatch/internal/dispatch"
	"github.com/deskline/deskline-dispatch/internal/httpserver"
	"github.com/deskline/deskline-dispatch/internal/ledger"
	"github.com/deskline/deskline-dispatch/internal/ledger/sqlite"
	"github.com/deskline/deskline-dispatch/internal/logging"
	"github.com/deskline/deskline-dispatch/internal/ratelimit"
)

const logMaxBytes = 64 << 20

func main() {
	cfg, err := config.LoadDispatchConfig(".")
	if err != nil {
		log.Fatalf("[ERROR] dispatchd: load config: %v", err)
	}

	log.SetPrefix("[dispatchd] ")
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if cfg.LogFile != "" {
		fileWriter, err := logging.NewRotatingWriter(cfg.LogFile, logMaxBytes)
		if err != nil {
			log.Fatalf("[ERROR] dispatchd: open log file: %v", err)
		}
		defer fileWriter.Close()
		log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
	}
	log.Printf("[INFO] starting (env=%s, addr=%s)", cfg.Environment, cfg.HTTPAddress)

	var events ledger.Store = ledger.Noop{}
	if cfg.LedgerPath != "" {
		store, err := sqlite.New(cfg.LedgerPath)
		if err != nil {
			log.Fatalf("[ERROR] dispatchd: open event ledger: %v", err)
		}
		defer store.Close()
		events = store
		log.Printf("[INFO] event ledger at %s", cfg.LedgerPath)
	}

	clk := clock.Real{}
	agents := dispatch.NewAgentStore()
	sessions := dispatch.NewSessionStore()
	hours := dispatch.NewBusinessHours(clk)
	shifts := dispatch.NewShiftManager(clk, agents, hours)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := shifts.SeedRoster(ctx); err != nil {
		log.Fatalf("[ERROR] dispatchd: seed roster: %v", err)
	}
	shifts.UpdateStatuses()

	capacity := dispatch.NewCapacityCalculator(clk, agents, sessions, hours)
	selector := dispatch.NewAgentSelector(agents, dispatch.NewRoundRobin())
	assigner := dispatch.NewAssigner(clk, sessions, agents, capacity)
	timeouts := dispatch.NewSessionTimeoutService(clk, sessions, agents, events)
	service := dispatch.NewChatService(clk, sessions, agents, capacity, events)

	dispatcher := dispatch.NewDispatcher(sessions, agents, selector, assigner, hours, events,
		cfg.DispatchInterval, cfg.BatchSize, cfg.OverflowPromotionBatch)
	monitor := dispatch.NewMonitor(shifts, timeouts, cfg.MonitorInterval)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		monitor.Run(ctx)
	}()

	limiter := ratelimit.NewKeyedLimiter(cfg.CreateRatePerSec, cfg.CreateBurst)
	api := httpserver.New(clk, service, sessions, agents, capacity, limiter)
	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[INFO] listening on %s", cfg.HTTPAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ERROR] http server: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Printf("[INFO] received %v, shutting down", s)
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	wg.Wait()
	log.Printf("[INFO] stopped")
}
