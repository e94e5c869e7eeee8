package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia/internal/accounts"
	"trivia/internal/cache"
	"trivia/internal/config"
	"trivia/internal/db"
	"trivia/internal/handlers"
	"trivia/internal/jobs"
	"trivia/internal/payment"
	"trivia/internal/services"
	"trivia/internal/store"
	"trivia/internal/websocket"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	resetLoc, err := time.LoadLocation(cfg.ResetTimezone)
	if err != nil {
		log.Fatalf("invalid reset timezone %q: %v", cfg.ResetTimezone, err)
	}

	var balanceCache cache.BalanceCache
	if cfg.RedisAddr != "" {
		pool, err := cache.NewRedisPool(cfg.RedisAddr)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		balanceCache = cache.NewRedisCache(pool, cfg.BalanceCacheTTL)
	} else {
		balanceCache = cache.NewMemoryCache(cfg.BalanceCacheTTL)
	}

	balances := store.NewBalanceStore(database)
	ledger := store.NewLedgerStore(database)
	purchases := store.NewPurchaseStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()
	directory := accounts.NewStaticDirectory(cfg.UnrestrictedUserIDs)
	gateway := payment.NewCallbackGateway()

	service := services.NewCreditService(txRunner, balances, ledger, purchases, balanceCache, gateway, directory, hub, services.Options{
		MaxQuestionsPerRequest: cfg.MaxQuestionsPerRequest,
		ResetLocation:          resetLoc,
	})

	scheduler := jobs.NewScheduler(service, resetLoc)
	if err := scheduler.Start(context.Background(), cfg.ResetSchedule); err != nil {
		log.Fatalf("failed to start reset scheduler: %v", err)
	}
	defer scheduler.Stop()

	handler := handlers.New(cfg, service, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("trivia credits API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
