package main

import (
	"context"
	"flag"
	"log"
	"os"

	"blog/internal/app"
	"blog/internal/db"
)

var flags = flag.NewFlagSet("migrate", flag.ExitOnError)

func main() {
	_ = flags.Parse(os.Args[1:])
	args := flags.Args()

	if len(args) < 1 {
		log.Fatal("Usage: migrate COMMAND\n\nCommands:\n  up\n  down\n  status")
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.Type != "postgres" {
		log.Fatalf("Migrations need BLOG_DB_TYPE=postgres, got %q", cfg.Database.Type)
	}

	sqlDB, err := db.Open(context.Background(), cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer sqlDB.Close()

	command := args[0]
	switch command {
	case "up":
		err = db.Migrate(sqlDB)
	case "down":
		err = db.MigrateDown(sqlDB)
	case "status":
		err = db.MigrationStatus(sqlDB)
	default:
		log.Fatalf("Unknown command: %s", command)
	}
	if err != nil {
		log.Fatalf("Migration %s failed: %v", command, err)
	}
}
