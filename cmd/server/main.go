package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediahub/internal/auth"
	"mediahub/internal/config"
	"mediahub/internal/db"
	"mediahub/internal/httpapi"
	"mediahub/internal/service"
	"mediahub/internal/storage"
	"mediahub/internal/store"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	blobs, err := newBlobStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	log.Printf("storage backend: %s", cfg.StorageBackend)

	st := store.New(pool)
	svc := service.New(st, blobs, cfg.DefaultSection, cfg.MaxUploadBytes)

	authn := auth.NewAuthenticator(pool, cfg.AdminToken, cfg.SessionTTL)
	if cfg.AdminPassword != "" {
		if err := authn.EnsureAdminUser(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			log.Fatalf("ensure admin user: %v", err)
		}
		log.Printf("initial admin user ensured (username: %s)", cfg.AdminUsername)
	}

	api := httpapi.New(cfg, svc, authn)
	echoServer := api.NewEcho()

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      echoServer,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		log.Printf("listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
		os.Exit(1)
	}
}

func newBlobStorage(ctx context.Context, cfg config.Config) (storage.BlobStorage, error) {
	switch cfg.StorageBackend {
	case config.BackendS3:
		client, err := storage.NewS3Client(ctx, storage.S3ClientOptions{
			Region:         cfg.S3Region,
			Endpoint:       cfg.S3Endpoint,
			ForcePathStyle: cfg.S3ForcePathStyle,
			AccessKeyID:    cfg.S3AccessKeyID,
			SecretKey:      cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return storage.NewS3BlobStore(storage.S3Options{
			Client:        client,
			Bucket:        cfg.S3Bucket,
			Prefix:        cfg.S3KeyPrefix,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		}), nil
	default:
		return storage.NewLocalBlobStore(cfg.UploadDir)
	}
}
