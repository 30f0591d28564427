// Package repository provides methods to work with DB
package repository

import (
	"context"
	"database/sql"
	"log"
	"path/filepath"
	"time"

	"github.com/UnendingLoop/WatermarkIt/internal/model"
	"github.com/UnendingLoop/WatermarkIt/internal/repository/renderpg"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
)

type RenderRepo interface {
	Create(ctx context.Context, r *model.Render) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Render, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Render, error)
	SaveThumbnail(ctx context.Context, id string, thumbKey string) error
}

func NewPostgresRenderRepo(dbconn *dbpg.DB) RenderRepo {
	return renderpg.PostgresRepo{DB: dbconn}
}

func ConnectWithRetries(appConfig *config.Config, retryCount int, idleTime time.Duration) *dbpg.DB {
	dbOptions := dbpg.Options{
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: 10 * time.Minute,
	}
	dsnLink := appConfig.GetString("POSTGRES_DSN")
	var dbConn *dbpg.DB
	var err error

	for range retryCount {
		dbConn, err = dbpg.New(dsnLink, nil, &dbOptions)
		if err == nil {
			break
		}
		log.Printf("Failed to connect to PGDB: %s\nWaiting %v before next retry...", err, idleTime)
		time.Sleep(idleTime)
	}

	if err != nil {
		log.Fatal("Failed to connect to DB. Exiting the app...")
	}

	return dbConn
}

func MigrateWithRetries(db *sql.DB, migrationsPath string, retries int, idle time.Duration) {
	var err error
	for i := range retries {
		log.Printf("Migration try #%d...", i+1)
		if err = runMigrate(db, migrationsPath); err == nil {
			return
		}
		log.Printf("Migration try #%d was unsuccessful: %v\nWaiting %v before next try...", i+1, err, idle)
		time.Sleep(idle)
	}
	log.Fatalf("Out of migration retries, last error: %v. Exiting...", err)
}

func runMigrate(db *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		return err
	}

	sourceURL := "file://" + absPath
	log.Println("Running migrations from:", sourceURL)

	m, err := migrate.NewWithDatabaseInstance(
		sourceURL,
		"postgres",
		driver,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	log.Println("Database migrations applied successfully")
	return nil
}
