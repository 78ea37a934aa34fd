// Command migrate re-homes locally stored media into the configured S3
// bucket, flipping each record's locator once the upload succeeds.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"mediahub/internal/config"
	"mediahub/internal/db"
	"mediahub/internal/service"
	"mediahub/internal/storage"
	"mediahub/internal/store"
)

func main() {
	concurrency := flag.Int("concurrency", 4, "number of parallel uploads")
	removeLocal := flag.Bool("remove-local", false, "delete local files after a successful migration")
	dryRun := flag.Bool("dry-run", false, "list what would be migrated without touching anything")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.S3Bucket == "" {
		log.Fatal("S3_BUCKET must be set to migrate into an object store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	local, err := storage.NewLocalBlobStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("init local storage: %v", err)
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientOptions{
		Region:         cfg.S3Region,
		Endpoint:       cfg.S3Endpoint,
		ForcePathStyle: cfg.S3ForcePathStyle,
		AccessKeyID:    cfg.S3AccessKeyID,
		SecretKey:      cfg.S3SecretKey,
	})
	if err != nil {
		log.Fatalf("init s3 client: %v", err)
	}
	object := storage.NewS3BlobStore(storage.S3Options{
		Client:        client,
		Bucket:        cfg.S3Bucket,
		Prefix:        cfg.S3KeyPrefix,
		Region:        cfg.S3Region,
		Endpoint:      cfg.S3Endpoint,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})

	svc := service.New(store.New(pool), local, cfg.DefaultSection, cfg.MaxUploadBytes)

	result, err := svc.SweepLocalAssets(ctx, local, object, service.SweepOptions{
		Concurrency: *concurrency,
		RemoveLocal: *removeLocal,
		DryRun:      *dryRun,
	})
	if err != nil {
		log.Fatalf("sweep: %v", err)
	}
	log.Printf("sweep finished: scanned=%d migrated=%d failed=%d", result.Scanned, result.Migrated, result.Failed)
}
