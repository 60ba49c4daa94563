package main

import (
	"embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// gooseLogger routes goose output into the app logger.
type gooseLogger struct {
	sugar *zap.SugaredLogger
}

func (gl *gooseLogger) Printf(format string, v ...interface{}) {
	gl.sugar.Infof(strings.TrimSuffix(format, "\n"), v...)
}

func (gl *gooseLogger) Fatalf(format string, v ...interface{}) {
	gl.sugar.Fatalf(strings.TrimSuffix(format, "\n"), v...)
}

// RunMigrations applies all pending embedded migrations on the pool database.
func RunMigrations(pool *pgxpool.Pool, logger *zap.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(&gooseLogger{sugar: logger.Named("migrations").Sugar()})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}
