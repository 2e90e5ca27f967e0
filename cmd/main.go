package main

import (
	"log"
	"net/http"
	"time"

	"github.com/Ossmium/avito/internal/db"
	"github.com/Ossmium/avito/internal/handlers"
	"github.com/Ossmium/avito/internal/repository"
	"github.com/Ossmium/avito/internal/router"
	"github.com/Ossmium/avito/internal/router/config"
	"github.com/Ossmium/avito/internal/services"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("cannot create logger: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	runDBMigration(logger, cfg.MigrationURL, cfg.PostgresConn)

	dbPool, err := db.InitDb(cfg)
	if err != nil {
		logger.Fatalw("error initializing database", "error", err)
	}
	defer dbPool.Close()

	directory := repository.NewPostgresEmployeeDirectory(dbPool)
	tenderRepo := repository.NewPostgresTenderRepository(dbPool)
	bidRepo := repository.NewPostgresBidRepository(dbPool)

	tenderService := services.NewTenderService(tenderRepo, directory)
	bidService := services.NewBidService(bidRepo, tenderRepo, directory)
	decisionService := services.NewDecisionService(bidRepo, tenderRepo, directory)

	tenderHandler := handlers.NewTenderHandler(tenderService, logger, 5*time.Second)
	bidHandler := handlers.NewBidHandler(bidService, decisionService, logger, 5*time.Second)

	routes := router.InitRoutes(tenderHandler, bidHandler)

	logger.Infow("server is listening", "address", cfg.ServerAddress)
	if err := http.ListenAndServe(cfg.ServerAddress, routes); err != nil {
		logger.Fatalw("server failed", "error", err)
	}
}

func runDBMigration(logger *zap.SugaredLogger, migrationURL string, dbSource string) {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		logger.Fatalw("cannot create a new migrate instance", "error", err)
	}

	if err = migration.Up(); err != nil && err != migrate.ErrNoChange {
		logger.Fatalw("failed to run migrate up", "error", err)
	}
	logger.Info("db migrated successfully")
}
