package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/samirrijal/mobilebook/internal/adapters/postgres"
	"github.com/samirrijal/mobilebook/internal/pkg/config"
	"github.com/samirrijal/mobilebook/internal/pkg/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up>")
	}

	cfg, err := config.Load("mobilebook-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("mobilebook-migrate", cfg.Server.LogLevel, "text")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		if err := db.Migrate(ctx); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Println("all migrations applied")
	case "down":
		log.Println("down migrations are not supported; restore from backup")
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}
