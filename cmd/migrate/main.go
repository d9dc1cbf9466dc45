// Command migrate applies the SQL schema in migrations/ to the PostgreSQL
// database named by DATABASE_URL.
//
//	go run ./cmd/migrate up
//	go run ./cmd/migrate down
//	go run ./cmd/migrate version
package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/kendall-kelly/studio-ledger-api/config"
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		log.Fatal("usage: migrate <up|down|version>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[migrate] Failed to load configuration: %v", err)
	}
	if cfg.UsesSQLite() {
		log.Fatal("migrate only targets PostgreSQL; SQLite databases are auto-migrated on startup")
	}

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "file://migrations"
	}

	m, err := migrate.New(migrationsPath, cfg.GetDatabaseURL())
	if err != nil {
		log.Fatalf("[migrate] Failed to create migrate instance: %v", err)
	}
	defer func() { _, _ = m.Close() }()

	switch args[0] {
	case "up":
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("[migrate] No pending migrations")
			return
		}
		if err != nil {
			log.Fatalf("[migrate] Migration up failed: %v", err)
		}
		log.Println("[migrate] Migrations applied successfully")

	case "down":
		err = m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("[migrate] No migrations to roll back")
			return
		}
		if err != nil {
			log.Fatalf("[migrate] Migration down failed: %v", err)
		}
		log.Println("[migrate] Migration rolled back successfully")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Println("[migrate] No migrations applied yet")
			return
		}
		if err != nil {
			log.Fatalf("[migrate] Failed to get version: %v", err)
		}
		log.Printf("[migrate] Current migration version: %d (dirty: %t)", version, dirty)

	default:
		log.Fatalf("[migrate] Unknown command %q", args[0])
	}
}
