// Package storage connects the app to its object storage for renders and thumbnails
package storage

import (
	"context"
	"log"
	"time"

	"github.com/UnendingLoop/WatermarkIt/internal/storage/miniostorage"
	"github.com/wb-go/wbf/config"
)

// NewRenderStorage blocks until MinIO answers or ctx is done.
func NewRenderStorage(ctx context.Context, cfg *config.Config, delay time.Duration) *miniostorage.MinioRenderStorage {
	opts := miniostorage.Options{
		Endpoint: cfg.GetString("MINIO_CONTAINER_NAME") + ":9000",
		User:     cfg.GetString("MINIO_USER"),
		Pass:     cfg.GetString("MINIO_PASS"),
		Bucket:   cfg.GetString("BUCKET_NAME"),
	}

	for {
		log.Println("Connecting to render-storage...")
		client, err := miniostorage.NewMinioClient(ctx, opts)
		if err == nil {
			log.Println("Successfully connected render-storage!")
			return client
		}
		log.Printf("Failed to init connection to render-storage: %v\nNext retry in %v...", err, delay)

		select {
		case <-ctx.Done():
			log.Fatalln("Render-storage connection canceled. Exiting...")
		case <-time.After(delay):
		}
	}
}
