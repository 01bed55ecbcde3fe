package main

import (
	"context"
	"crypto/rsa"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"brandhub/docs/swagger"
	"brandhub/internal/api"
	"brandhub/internal/authz"
	"brandhub/internal/config"
	"brandhub/internal/db"
	"brandhub/internal/events"
	"brandhub/internal/models"
	"brandhub/internal/services"
	"brandhub/internal/store"
	"brandhub/internal/tasks"
	"brandhub/internal/tasks/rate"
	"brandhub/internal/utils"
	"brandhub/internal/utils/crypto"
	"brandhub/internal/utils/logger"
)

// @title Brandhub API
// @version 1.0
// @description Organizations, brands, events and invitations for brand teams
// @BasePath /api/v1
// @schemes https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	logger := logger.New("brandhub")

	// check if .env file exists
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		logger.Info("No .env file found, skipping environment variable loading")
	} else {
		logger.Info("Loading environment variables from .env file")
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Identity tokens use RS256 when a key is configured
	var signingKey *rsa.PrivateKey
	if cfg.Crypto.PrivateKey != "" {
		if err := crypto.InitializeKeys(cfg.Crypto.PrivateKey); err != nil {
			log.Fatalf("Failed to initialize keys: %v", err)
		}
		signingKey = crypto.PrivateKey
	}
	issuer := utils.NewTokenIssuer(cfg.JWT.Secret, signingKey, cfg.JWT.Issuer, cfg.JWT.TTL)

	st, gormDB := openStore(cfg, logger)
	defer func() {
		if err := db.Close(); err != nil {
			_ = logger.Error("Failed to close database connection", err)
		}
	}()

	// Task queue client doubles as mailer, claims refresher and object cleaner
	taskClient := tasks.NewTaskClient(cfg.Redis)
	defer func() {
		if err := taskClient.Close(); err != nil {
			_ = logger.Error("Failed to close task client", err)
		}
	}()

	storage := openStorage(cfg, logger)

	encoder := authz.NewEncoder()
	encoder.MaxBytes = cfg.Claims.MaxBytes
	encoder.SoftRatio = cfg.Claims.SoftRatio
	sink := services.NewRedisClaimsSink(taskClient.Redis(), cfg.Claims.KeyPrefix, cfg.Claims.MaxBytes)

	bus := events.NewEventBus()
	services.RegisterClaimsPropagation(bus, taskClient)

	claimsService := services.NewClaimsService(st, sink, encoder)
	invitationService := services.NewInvitationService(st, bus, taskClient, services.InvitationOptions{
		TTL:    cfg.Invitations.TTL,
		AppURL: cfg.Server.AppURL,
	})

	var cleaner services.ObjectCleaner
	var objects tasks.ObjectDeleter
	var brandStorage services.ObjectStorage
	if storage != nil {
		cleaner, objects, brandStorage = taskClient, storage, storage
	}
	brandService := services.NewBrandService(st, bus, brandStorage, cleaner)

	// Initialize task handlers
	taskHandler := tasks.NewTaskHandler(tasks.HandlerDeps{
		Claims:      claimsService,
		Mailer:      services.NewPostmarkClient(cfg.Email.APIURL, cfg.Email.APIToken, cfg.Email.From),
		Invitations: invitationService,
		Objects:     objects,
		Limiter: rate.NewQueueRateLimiter(taskClient.Redis(), rate.QueueConfig{
			Name: tasks.TaskTypeEmailSend,
			RateLimit: rate.RateLimit{
				Window:  cfg.Email.PerRecipientWindow,
				MaxJobs: cfg.Email.PerRecipientLimit,
			},
		}),
	})

	// Initialize task server
	taskServer := tasks.NewServer(cfg.Redis, cfg.Worker.Concurrency, taskHandler, logger.Named("tasks"))

	// Create a context for task server
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	// Start task server
	go func() {
		if err := taskServer.Start(serverCtx); err != nil {
			_ = logger.Error("Task server error", err)
		}
	}()

	// Initialize task scheduler
	taskScheduler := tasks.NewScheduler(cfg.Redis, cfg.Invitations.ExpirySweepCron, logger.Named("scheduler"))

	// Start task scheduler
	go func() {
		if err := taskScheduler.Start(); err != nil {
			_ = logger.Error("Task scheduler error", err)
		}
	}()

	// Initialize API server
	apiServer := api.NewServer(cfg, api.Dependencies{
		DB:            gormDB,
		Issuer:        issuer,
		Organizations: services.NewOrganizationService(st, bus),
		Members:       services.NewMemberService(st, bus),
		Invitations:   invitationService,
		Brands:        brandService,
		Events:        services.NewEventService(st),
		QRCodes:       services.NewQRCodeService(st),
		Claims:        claimsService,
	})

	// Swagger documentation
	swagger.SwaggerInfo.Title = "Brandhub API Documentation"
	swagger.SwaggerInfo.Description = "Organizations, brands, events and invitations for brand teams"
	swagger.SwaggerInfo.Version = "1.0"
	swagger.SwaggerInfo.BasePath = "/api/v1"

	go func() {
		logger.Success("API server started on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := apiServer.Start(); err != nil {
			_ = logger.Error("API server error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the servers
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Create a deadline for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown API server
	if err := apiServer.Shutdown(ctx); err != nil {
		_ = logger.Error("Failed to shutdown API server", err)
	}

	// Stop task scheduler
	taskScheduler.Stop()

	// Stop task server
	serverCancel()
	taskServer.Shutdown()

	// Let in-flight event handlers enqueue their work
	bus.Wait()

	logger.Info("Servers shutdown gracefully")
}

// openStore picks the document store. The gorm handle is nil for the memory
// driver.
func openStore(cfg *config.Config, log *logger.Logger) (store.Store, *gorm.DB) {
	if cfg.Store.Driver == "memory" {
		log.Warn("Using the in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}

	// Connect to database
	if err := db.Connect(cfg); err != nil {
		_ = log.Error("Failed to connect to database", err)
		os.Exit(1)
	}
	return store.NewGormStore(db.GetDB()), db.GetDB()
}

// openStorage returns nil when object storage is disabled or unreachable;
// logo uploads then fail with an internal error.
func openStorage(cfg *config.Config, log *logger.Logger) *services.S3Service {
	if cfg.Storage.Provider != "s3" {
		log.Warn("Object storage disabled (STORAGE_PROVIDER=%q)", cfg.Storage.Provider)
		return nil
	}

	// Initialize S3 service
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s3Service, err := services.NewS3Service(ctx, cfg.Storage.S3)
	if err != nil {
		_ = log.Error("Failed to initialize S3 service, continuing without object storage", err)
		return nil
	}

	// Register the URL generator
	models.RegisterFileURLGenerator(s3Service)
	return s3Service
}
