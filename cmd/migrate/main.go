package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

// migrator is the part of *migrate.Migrate the command drives.
type migrator interface {
	Up() error
	Steps(n int) error
	Version() (uint, bool, error)
}

func main() {
	_ = godotenv.Load()

	mode := flag.String("mode", "up", "migration mode: up, down or version")
	flag.Parse()

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		log.Fatal("DB_URL not set in environment")
	}

	source := os.Getenv("MIGRATIONS_PATH")
	if source == "" {
		source = "file://migrations"
	}

	m, err := migrate.New(source, dbURL)
	if err != nil {
		log.Fatalf("failed to create migrator: %v", err)
	}
	defer func() { _, _ = m.Close() }()

	msg, err := run(m, *mode)
	if err != nil {
		log.Fatal(err)
	}
	log.Println(msg)
}

func run(m migrator, mode string) (string, error) {
	switch mode {
	case "up":
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			return "no pending migrations", nil
		}
		if err != nil {
			return "", fmt.Errorf("migration up failed: %w", err)
		}
		return "migrations applied successfully", nil

	case "down":
		err := m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			return "no migrations to roll back", nil
		}
		if err != nil {
			return "", fmt.Errorf("migration down failed: %w", err)
		}
		return "rollback successful", nil

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return "no migrations applied yet", nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to read version: %w", err)
		}
		return fmt.Sprintf("current version %d (dirty=%t)", version, dirty), nil

	default:
		return "", fmt.Errorf("unknown mode: %s (use 'up', 'down' or 'version')", mode)
	}
}
