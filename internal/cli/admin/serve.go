package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/csrental/cees/internal/api/handlers"
	"github.com/csrental/cees/internal/audit"
	"github.com/csrental/cees/internal/config"
	"github.com/csrental/cees/internal/database"
	"github.com/csrental/cees/internal/jobs"
	"github.com/csrental/cees/internal/openai"
	"github.com/csrental/cees/internal/repository"
	"github.com/csrental/cees/internal/server"
	"github.com/csrental/cees/internal/service"
	"github.com/csrental/cees/internal/storage"
	"github.com/csrental/cees/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the CeeS API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	approvalRepo := repository.NewApprovalRepository(pool)
	chatSessionRepo := repository.NewChatSessionRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	userSessionRepo := repository.NewUserSessionRepository(pool)
	auditRepo := repository.NewAuditLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	auditLog := audit.NewLogger(auditRepo, uuidGen)

	var blobs service.BlobStore
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		blobs = s3Client
	} else {
		return fmt.Errorf("S3 storage is required: set CEES_S3_ENDPOINT, CEES_S3_ACCESS_KEY_ID and CEES_S3_SECRET_ACCESS_KEY")
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("OpenAI is required: set CEES_OPENAI_API_KEY")
	}
	openaiClient := openai.NewClientWithConfig(openai.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Timeout: cfg.OpenAITimeout,
	})

	embeddings := service.NewEmbeddingService(openaiClient)

	docSvc := service.NewDocumentService(docRepo, chunkRepo, approvalRepo, blobs, embeddings, auditLog, service.DocumentConfig{
		MaxFileSize:       cfg.MaxFileSize,
		AllowedExtensions: cfg.AllowedExtensions(),
		Chunking: service.ChunkConfig{
			ChunkSize: cfg.ChunkSize,
			Overlap:   cfg.ChunkOverlap,
		},
	})
	docSvc.SetTxRunner(txRunner)

	queue := jobs.NewProcessingQueue(docSvc, cfg.ProcessingQueueSize, cfg.ProcessingWorkers)
	docSvc.SetQueue(queue)
	go queue.Start(ctx)

	retriever := service.NewRetrievalService(embeddings, chunkRepo, cfg.RetrievalTopK)

	chatSvc := service.NewChatService(chatSessionRepo, messageRepo, retriever, openaiClient, auditLog, service.ChatConfig{
		ChatModel:  cfg.ChatModel,
		TitleModel: cfg.TitleModel,
	})

	authSvc := service.NewAuthService(userSessionRepo, uuidGen)

	routerCfg := server.RouterConfig{
		SessionValidator: authSvc,
		DocumentHandler:  handlers.NewDocumentHandler(docSvc, cfg.MaxFileSize),
		ChatHandler:      handlers.NewChatHandler(chatSvc),
		SessionHandler:   handlers.NewSessionHandler(authSvc),
		MaxBodyBytes:     cfg.MaxFileSize + 1024*1024,
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	queue.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate needs a database/sql connection
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
