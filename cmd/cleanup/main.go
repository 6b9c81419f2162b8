package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"
	"transit-tracking-service/internal/app"
	"transit-tracking-service/internal/config"
	"transit-tracking-service/internal/services"
)

// One retention pass, meant for cron or a Kubernetes CronJob.
func main() {
	hours := flag.Int("hours", 0, "retention horizon in hours (default RETENTION_HOURS or 48)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	horizon := cfg.Retention
	if *hours > 0 {
		horizon = time.Duration(*hours) * time.Hour
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	n, err := services.NewRetentionService(store.Locations, horizon).Cleanup(ctx)
	if err != nil {
		log.Fatalf("cleanup failed after deleting %d samples: %v", n, err)
	}
	log.Printf("cleanup done deleted=%d horizon=%s", n, horizon)
}
