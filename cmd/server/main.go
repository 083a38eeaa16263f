package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"

	"querybridge/internal/api"
	"querybridge/internal/cache"
	"querybridge/internal/config"
	"querybridge/internal/conn"
	"querybridge/internal/driver"
	"querybridge/internal/email"
	"querybridge/internal/hub"
	"querybridge/internal/page"
	"querybridge/internal/query"
	"querybridge/internal/service"
	"querybridge/internal/storage"
	"querybridge/internal/worker"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 0. Load Config
	cfg := config.Load()

	slog.Info("Starting QueryBridge", "env", cfg.AppEnv)

	// 1. Database driver and connection manager
	connCfg := conn.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Database: cfg.DBName,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		SSLMode:  cfg.DBSSLMode,
		PoolMin:  cfg.DBPoolMin,
		PoolMax:  cfg.DBPoolMax,
	}

	var drv driver.Driver
	switch cfg.DBDriver {
	case "mysql":
		drv = driver.NewMySQLDriver(connCfg.MySQLDSN(), connCfg.Bounds())
	default:
		drv = driver.NewPostgresDriver(connCfg.PostgresDSN(), connCfg.Bounds())
	}

	mgr := conn.NewManager(drv, connCfg, cfg.ConnectAttempts, cfg.ConnectRetryDelay)
	defer mgr.Disconnect()

	// 2. Staged-result cache
	var store cache.Store
	if cfg.CacheType == "memory" {
		store = cache.NewMemoryStore()
		slog.Info("Using in-memory result cache")
	} else {
		redisStore := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisStore.Ping(pingCtx); err != nil {
			cancel()
			slog.Error("Redis unreachable", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		cancel()
		defer redisStore.Close()
		store = redisStore
		slog.Info("Redis connected", "addr", cfg.RedisAddr)
	}

	// 3. Query service
	exec := query.NewExecutor(mgr, store, cfg.LargeResultThreshold, cfg.StagedResultTTL)
	pager := page.NewPager(store)
	svc := service.New(mgr, exec, pager)

	// 4. Export storage
	var provider storage.Provider
	if cfg.StorageType == "s3" {
		if cfg.S3Bucket == "" {
			slog.Error("S3_BUCKET not set")
			os.Exit(1)
		}
		client := s3.New(newS3Options(cfg))
		provider = storage.NewS3Provider(client, cfg.S3Bucket)
		slog.Info("Using S3 storage", "bucket", cfg.S3Bucket, "region", cfg.AWSRegion)
	} else {
		provider = storage.NewLocalProvider(cfg.LocalStoragePath)
		slog.Info("Using local storage", "path", cfg.LocalStoragePath)
	}

	// 5. Notifications
	var emailer email.Sender
	if cfg.SMTPHost != "" {
		emailer = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		emailer = email.NewLogSender()
	}

	// 6. Dashboard hub and export worker pool
	h := hub.NewHub()
	pool := worker.NewPool(cfg.WorkerCount, cfg.MaxUploadConcurrency, store, provider, emailer, h)
	pool.Start()
	defer pool.Stop()

	// 7. Handlers, routes, middleware
	handler := api.NewHandler(svc, pool, h, cfg.APISecret, cfg.ExportTimeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", handler.HandleHealth)
	mux.HandleFunc("/api/tables", handler.HandleTables)
	mux.HandleFunc("/api/schema", handler.HandleSchema)
	mux.HandleFunc("/api/schema/export", handler.HandleSchemaExport)
	mux.HandleFunc("/api/query", handler.HandleQuery)
	mux.HandleFunc("/api/query/page", handler.HandleQueryPage)
	mux.HandleFunc("/api/translate", handler.HandleTranslate)
	mux.HandleFunc("/api/export", handler.HandleExport)
	mux.HandleFunc("/api/export/status", handler.HandleExportStatus)
	mux.HandleFunc("/api/token", handler.HandleToken)
	mux.HandleFunc("/api/disconnect", handler.HandleDisconnect)

	signed := api.HMACAuth(cfg.APISecret)(mux)

	// Websocket endpoints authenticate with a bearer token instead of a
	// request signature, so they sit outside the HMAC wrapper.
	root := http.NewServeMux()
	root.Handle("/api/", signed)
	root.HandleFunc("/api/query/stream", handler.HandleStream)
	root.HandleFunc("/dashboard/stream", handler.HandleDashboard)

	finalHandler := api.CORS(cfg.AllowedOrigins, cfg.AppEnv)(root)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: finalHandler,
	}

	go func() {
		slog.Info("QueryBridge listening", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// newS3Options builds the client options from the environment. A custom
// endpoint and path-style addressing cover MinIO and other S3-compatible
// backends.
func newS3Options(cfg *config.Config) s3.Options {
	opts := s3.Options{
		Region:       cfg.AWSRegion,
		UsePathStyle: cfg.S3PathStyle,
		Credentials: aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			}, nil
		}),
	}
	if cfg.S3Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.S3Endpoint)
	}
	return opts
}
