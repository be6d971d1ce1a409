package main

import (
	"flag" // Command line flags

	"github.com/sirupsen/logrus" // Logging library

	"reward_ledger/internal/config" // Custom import path (Config)
	"reward_ledger/internal/db"     // Custom import path (Database)
)

// Main entry point for migration
func main() {
	seed := flag.Bool("seed", false, "insert the default task catalogue")
	flag.Parse()

	cfg := config.LoadConfig() // Load configuration
	gdb, err := db.Open(cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("migration failed: %v", err) // Log fatal error if migration fails
	}
	if *seed {
		if _, err := db.SeedTasks(gdb, db.DefaultTasks); err != nil {
			logrus.Fatalf("seeding failed: %v", err)
		}
	}
}
