package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	"transit-tracking-service/internal/adapters/cache"
	"transit-tracking-service/internal/adapters/events"
	"transit-tracking-service/internal/api"
	"transit-tracking-service/internal/app"
	"transit-tracking-service/internal/config"
	"transit-tracking-service/internal/metrics"
	"transit-tracking-service/internal/services"

	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires the configured storage backend and the optional cache, fan-out and metrics
// adapters behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := cfg.RequireSecret(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	// Apply schema and optional seed data on startup.
	if err := store.Migrate(); err != nil {
		log.Fatal(err)
	}
	if cfg.SeedPath != "" {
		if err := store.Seed(ctx, cfg.SeedPath); err != nil {
			log.Fatal(err)
		}
	}

	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.Retention)
		msrv := mcol.Serve(cfg.MetricsAddr)
		defer shutdown(msrv)
	}

	shiftSvc := services.NewShiftService(store.Shifts, store.Registry)
	shiftSvc.Metrics = mcol
	locationSvc := services.NewLocationService(store.Locations, store.Shifts, store.Registry)
	locationSvc.Metrics = mcol

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Printf("redis unavailable addr=%s err=%v (latest cache disabled)", cfg.RedisAddr, err)
		} else {
			latestCache := cache.NewRedisLatestCache(rdb, cfg.LatestCacheTTL)
			shiftSvc.Cache = latestCache
			locationSvc.Cache = latestCache
			log.Printf("latest cache enabled addr=%s ttl=%s", cfg.RedisAddr, cfg.LatestCacheTTL)
		}
	}

	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, mcol)
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
		locationSvc.Publisher = pub
		log.Printf("position fan-out enabled url=%s prefix=%s", cfg.NATSURL, cfg.NATSSubjectPrefix)
	}

	if cfg.CleanupInterval > 0 {
		retention := services.NewRetentionService(store.Locations, cfg.Retention)
		retention.Metrics = mcol
		go retention.Run(ctx, cfg.CleanupInterval)
		log.Printf("retention job enabled horizon=%s interval=%s", cfg.Retention, cfg.CleanupInterval)
	}

	router := api.NewRouter(api.Deps{
		Shifts:      shiftSvc,
		Locations:   locationSvc,
		Registry:    store.Registry,
		Auth:        api.NewAuthenticator(cfg.JWTSecret),
		DB:          store.DB,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server listening addr=:%s storage=%s", cfg.Port, store.Kind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdown(srv)
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown addr=%s err=%v", srv.Addr, err)
	}
}
