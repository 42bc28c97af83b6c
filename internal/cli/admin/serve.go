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

	"github.com/cloo-solutions/kbman/internal/api/handlers"
	"github.com/cloo-solutions/kbman/internal/cache"
	"github.com/cloo-solutions/kbman/internal/config"
	"github.com/cloo-solutions/kbman/internal/database"
	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/jobs"
	"github.com/cloo-solutions/kbman/internal/openai"
	"github.com/cloo-solutions/kbman/internal/repository"
	"github.com/cloo-solutions/kbman/internal/rerank"
	"github.com/cloo-solutions/kbman/internal/server"
	"github.com/cloo-solutions/kbman/internal/service"
	"github.com/cloo-solutions/kbman/internal/storage"
	"github.com/cloo-solutions/kbman/internal/telemetry"
	"github.com/cloo-solutions/kbman/internal/vectorindex"
	"github.com/cloo-solutions/kbman/internal/vectorindex/pgvector"
	"github.com/cloo-solutions/kbman/internal/vectorindex/qdrant"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	openailib "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the kbman API server on the specified port",
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

	if cfg.HasSentry() {
		sampleRate := 0.1
		if cfg.SentryEnvironment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
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

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	projectRepo := repository.NewProjectRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	setRepo := repository.NewVersionedSetRepository(pool)
	indexRepo := repository.NewIndexRepository(pool)
	runRepo := repository.NewRetrievalRunRepository(pool)
	jobRepo := repository.NewJobRepository(pool)

	var s3Client *storage.S3Client
	if cfg.HasS3() {
		s3Client, err = storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	}

	var objectStore service.ObjectStore
	var docStore service.DocumentObjectStore
	var blobStore service.BlobStore
	if s3Client != nil {
		objectStore = s3Client
		docStore = s3Client
		blobStore = s3Client
	}

	var embedder service.Embedder
	if cfg.HasOpenAI() {
		embedder = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      openailib.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDims,
		})
	}

	var embedCache service.EmbeddingCacheInterface
	if cfg.HasRedis() {
		embedCache = cache.NewEmbeddingCache(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.EmbedCacheTTL,
		})
		log.Println("embedding cache enabled")
	}

	var reranker rerank.Reranker
	if cfg.HasRerank() {
		reranker = rerank.NewHTTPClient(cfg.RerankURL, cfg.RerankModel)
		log.Printf("rerank endpoint configured: %s", cfg.RerankURL)
	}

	providers := vectorindex.NewRegistry()
	providers.Register(domain.ProviderPgvector, pgvector.NewStore(pool))
	if cfg.HasQdrant() {
		qdrantClient, err := qdrant.New(qdrant.Config{
			URL:    cfg.QdrantURL,
			APIKey: cfg.QdrantAPIKey,
		})
		if err != nil {
			return fmt.Errorf("failed to create qdrant client: %w", err)
		}
		providers.Register(domain.ProviderQdrant, qdrantClient)
		log.Println("qdrant provider registered")
	}

	txRunner := repository.NewTxRunner(pool)

	projectSvc := service.NewProjectService(projectRepo)
	documentSvc := service.NewDocumentServiceWithTx(documentRepo, projectRepo, docStore, txRunner)
	setSvc := service.NewVersionedSetService(setRepo, objectStore)
	segmentSvc := service.NewSegmentService(setSvc, documentRepo, blobStore)
	chunkSvc := service.NewChunkService(setSvc, setRepo)
	indexSvc := service.NewIndexService(service.IndexServiceDeps{
		IndexRepo:   indexRepo,
		SetRepo:     setRepo,
		Providers:   providers,
		Embedder:    embedder,
		ObjectStore: objectStore,
	})
	retrievalSvc := service.NewRetrievalService(service.RetrievalServiceDeps{
		SetRepo:     setRepo,
		IndexRepo:   indexRepo,
		RunRepo:     runRepo,
		Providers:   providers,
		Embedder:    embedder,
		EmbedCache:  embedCache,
		Reranker:    reranker,
		ObjectStore: objectStore,
		PageDefault: cfg.PageSizeDefault,
		PageMax:     cfg.PageSizeMax,
	})
	jobSvc := service.NewJobService(jobRepo)
	pipelineSvc := service.NewPipelineService(service.PipelineServiceDeps{
		Segments: segmentSvc,
		Chunks:   chunkSvc,
		Indexes:  indexSvc,
		DocRepo:  documentRepo,
		JobRepo:  jobRepo,
	})

	worker := jobs.NewWorker(jobs.NewProcessor(jobRepo, indexSvc, pipelineSvc), cfg.WorkerPollInterval)
	go worker.Start(ctx)
	log.Println("job worker started")

	routerCfg := server.RouterConfig{
		ProjectHandler:    handlers.NewProjectHandler(projectSvc),
		DocumentHandler:   handlers.NewDocumentHandler(documentSvc),
		SegmentSetHandler: handlers.NewSegmentSetHandler(setSvc, segmentSvc),
		ChunkSetHandler:   handlers.NewChunkSetHandler(setSvc, chunkSvc),
		IndexHandler:      handlers.NewIndexHandler(indexSvc, jobSvc),
		RetrievalHandler:  handlers.NewRetrievalHandler(retrievalSvc),
		JobHandler:        handlers.NewJobHandler(jobSvc, pipelineSvc),
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.NewRouter(routerCfg),
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

	worker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL, migrationsPath string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+migrationsPath,
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
