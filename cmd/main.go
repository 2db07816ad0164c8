package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/senyabanana/procurement-service/internal/auth"
	"github.com/senyabanana/procurement-service/internal/db"
	"github.com/senyabanana/procurement-service/internal/handlers"
	"github.com/senyabanana/procurement-service/internal/logger"
	"github.com/senyabanana/procurement-service/internal/notify"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/router"
	"github.com/senyabanana/procurement-service/internal/router/config"
	"github.com/senyabanana/procurement-service/internal/services"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
)

const (
	notifyTimeout   = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fallback := logger.New(logger.Config{})
		fallback.Fatal().Err(err).Msg("cannot load config")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Environment: cfg.AppEnv, ServiceName: "procurement-service"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbURL, err := db.ConnString(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid database configuration")
	}
	runDBMigration(log, cfg.MigrationURL, dbURL)

	dbPool, err := db.InitDb(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing database")
	}
	defer dbPool.Close()

	publisher := notify.Publisher(notify.NewLogPublisher(log))
	if cfg.RedisAddr != "" {
		client, err := notify.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("cannot connect to redis")
		}
		defer client.Close()
		publisher = notify.NewRedisPublisher(client, cfg.NotifyChannel)
	}
	notifier := notify.NewDispatcher(publisher, log, notifyTimeout)

	userRepo := repository.NewPostgresUserRepository(dbPool)
	vendorRepo := repository.NewPostgresVendorRepository(dbPool)
	contractRepo := repository.NewPostgresContractRepository(dbPool)
	tenderRepo := repository.NewPostgresTenderRepository(dbPool)
	bidRepo := repository.NewPostgresBidRepository(dbPool)
	workflowRepo := repository.NewPostgresWorkflowRepository(dbPool)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	userService := services.NewUserService(userRepo, tokens, log)
	vendorService := services.NewVendorService(vendorRepo, log)
	resolver := services.NewApproverResolver(userRepo, log)
	workflowService := services.NewWorkflowService(workflowRepo, resolver, cfg.ApprovalPolicy(), notifier, log)
	contractService := services.NewContractService(contractRepo, workflowService, notifier, log)
	tenderService := services.NewTenderService(tenderRepo, notifier, log)
	bidService := services.NewBidService(bidRepo, tenderRepo, vendorRepo, notifier, log, cfg.BidReviewLockTerminal)

	timeout := cfg.RequestTimeout
	routes := router.InitRoutes(router.Handlers{
		Users:     handlers.NewUserHandler(userService, log, timeout),
		Vendors:   handlers.NewVendorHandler(vendorService, log, timeout),
		Contracts: handlers.NewContractHandler(contractService, log, timeout, cfg.ContractExpiryWindow),
		Tenders:   handlers.NewTenderHandler(tenderService, log, timeout),
		Bids:      handlers.NewBidHandler(bidService, log, timeout),
		Workflows: handlers.NewWorkflowHandler(workflowService, log, timeout),
	}, userService, log)

	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           routes,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ServerAddress).Msg("server is listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func runDBMigration(log zerolog.Logger, migrationURL string, dbSource string) {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot create a new migrate instance")
	}

	if err = migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Msg("failed to run migrate up")
	}
	log.Info().Msg("db migrated successfully")
}
