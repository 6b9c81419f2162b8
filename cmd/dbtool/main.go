package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"
	"transit-tracking-service/internal/api"
	"transit-tracking-service/internal/app"
	"transit-tracking-service/internal/config"
	"transit-tracking-service/internal/domain"
)

const usage = `usage: dbtool <command> [flags]

commands:
  migrate            apply the schema (golang-migrate for postgres, InitSchema for sqlite)
  rollback           revert every postgres migration
  seed [-file path]  load routes and vehicles from JSON
  token -id N -role driver|admin|passenger [-blocked] [-ttl 24h]
                     print a signed bearer token for local testing (needs JWT_SECRET)
`

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "migrate", "rollback", "seed":
		if err := runStore(cfg, cmd, args); err != nil {
			log.Fatal(err)
		}
	case "token":
		if err := runToken(cfg, args); err != nil {
			log.Fatal(err)
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func runStore(cfg *config.Config, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	seedPath := fs.String("file", config.Get("SEED_PATH", "data/seeds/fleet.json"), "seed file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	switch cmd {
	case "migrate":
		return store.Migrate()
	case "rollback":
		log.Println("Reverting schema...")
		if err := store.Rollback(); err != nil {
			return err
		}
		log.Println("Schema reverted.")
		return nil
	}

	if err := store.Migrate(); err != nil {
		return err
	}
	return store.Seed(context.Background(), *seedPath)
}

func runToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	id := fs.Int64("id", 0, "user id")
	role := fs.String("role", string(domain.RoleDriver), "driver, admin or passenger")
	blocked := fs.Bool("blocked", false, "mark the account blocked")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := cfg.RequireSecret(); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("token: -id must be positive")
	}

	tok, err := api.NewAuthenticator(cfg.JWTSecret).Issue(domain.Identity{
		ID:      *id,
		Role:    domain.Role(*role),
		Blocked: *blocked,
	}, *ttl)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	fmt.Println(tok)
	return nil
}
