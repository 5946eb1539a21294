package main

import (
	"paper_trading/internal/config" // Custom import path (Config)
	"paper_trading/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.StorageDriver == config.DriverMemory {
		logrus.Fatal("STORAGE_DRIVER is memory, nothing to migrate")
	}
	gdb, err := db.Open(cfg.StorageDriver, cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatal(err)
	}
}
