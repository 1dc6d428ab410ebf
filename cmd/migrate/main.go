// Command migrate applies the archive schema migrations without starting
// the server. The server also migrates on boot; this tool exists for
// pipelines that roll the schema forward before deploying.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/db"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		dbURL  = flag.String("db", "", "postgres URL (falls back to DATABASE_URL)")
		status = flag.Bool("status", false, "print the current schema version and exit")
		list   = flag.Bool("list", false, "print the embedded migrations and exit")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	if *list {
		return listMigrations(logger)
	}

	url := *dbURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		logger.Error().Msg("no database URL: pass -db or set DATABASE_URL")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg := db.DefaultConfig(url)
	cfg.MaxConns = 2
	cfg.MinConns = 1

	database, err := db.New(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("connect to archive database")
		return 1
	}
	defer database.Close()

	if *status {
		version, err := database.CurrentVersion(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("read schema version")
			return 1
		}
		fmt.Printf("schema version %d\n", version)
		return 0
	}

	logger.Info().Msg("applying archive schema migrations")
	if err := database.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("migration failed")
		return 1
	}

	version, err := database.CurrentVersion(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("migrated, but could not read schema version")
		return 0
	}
	logger.Info().Int("version", version).Msg("schema up to date")
	return 0
}

func listMigrations(logger zerolog.Logger) int {
	migrations, err := db.GetMigrations()
	if err != nil {
		logger.Error().Err(err).Msg("read embedded migrations")
		return 1
	}

	for _, m := range migrations {
		fmt.Printf("%03d  %s\n", m.Version, m.Name)
	}
	return 0
}
