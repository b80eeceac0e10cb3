package main

import (
	"database/sql"
	"errors"
	"flag"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rbroggi/clerksync/internal/config"
	log "github.com/sirupsen/logrus"
)

var (
	down = flag.Bool("down", false, "run migration down")
)

func main() {
	flag.Parse()

	cfg, err := config.Parse[config.Migrate]()
	if err != nil {
		log.WithError(err).Fatal("error parsing configuration")
	}

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.WithError(err).Fatal("error opening db connection")
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.WithError(err).Fatal("error invoking WithInstance")
	}
	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		log.WithError(err).Fatal("error resolving migrations dir")
	}
	migrationsDir := "file://" + filepath.ToSlash(dir)
	log.WithField("dir", migrationsDir).Info("using migrations")

	m, err := migrate.NewWithDatabaseInstance(migrationsDir, "postgres", driver)
	if err != nil {
		log.WithError(err).Fatal("NewWithDatabaseInstance error")
	}

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.WithError(err).WithField("down", *down).Fatal("error running migrations")
	}
	log.WithField("down", *down).Info("migrations applied")
}
