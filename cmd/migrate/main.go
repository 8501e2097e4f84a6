package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sui-wrapped/internal/config"
	"github.com/sui-wrapped/internal/storage"
)

func main() {
	var (
		direction = flag.String("direction", "up", "migration direction: up or down")
		path      = flag.String("path", "migrations/postgres", "path to migration files")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	switch *direction {
	case "up":
		err = storage.RunMigrations(cfg.Database.Postgres, *path)
	case "down":
		err = storage.RollbackMigration(cfg.Database.Postgres, *path)
	default:
		fmt.Fprintf(os.Stderr, "unknown direction %q\n", *direction)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("migration %s completed\n", *direction)
}
