package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/linemk/storefront/internal/app"
	"github.com/linemk/storefront/internal/config"
)

const migrationTableName = "schema_migrations"

func main() {
	var (
		migrationsPathFlag string
		down               bool
	)
	flag.StringVar(&migrationsPathFlag, "migrations-path", "", "path to migration files")
	flag.BoolVar(&down, "down", false, "roll back the last migration")
	// MustLoad сам вызывает flag.Parse и читает -config
	cfg := config.MustLoad()

	migrationsPath := cfg.Migrations.Path
	if migrationsPathFlag != "" {
		migrationsPath = migrationsPathFlag
	}

	dsn := app.DSN(cfg.Database) + "&x-migrations-table=" + migrationTableName

	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		log.Fatalf("failed to create migrate instance: %v", err)
	}
	defer m.Close()

	if down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		fmt.Println("No migrations to apply")
	case err != nil:
		log.Fatalf("migration failed: %v", err)
	default:
		log.Println("Migrations applied successfully")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatalf("failed to read schema version: %v", err)
	}
	fmt.Printf("Schema version: %d (dirty: %v)\n", version, dirty)

	db, err := sql.Open("postgres", app.DSN(cfg.Database))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	var categories, inStock int
	err = db.QueryRow(`SELECT COUNT(*), COUNT(*) FILTER (WHERE quantity > 0) FROM categories WHERE deleted_at IS NULL`).
		Scan(&categories, &inStock)
	if err != nil {
		// после -down таблицы может не быть
		log.Printf("catalog summary unavailable: %v", err)
		return
	}
	fmt.Printf("Categories: %d, in stock: %d\n", categories, inStock)
}
