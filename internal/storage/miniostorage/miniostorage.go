// Package miniostorage provides structure to work with minio-storage
package miniostorage

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultBucket = "renders"

type Options struct {
	Endpoint string
	User     string
	Pass     string
	Bucket   string
	Secure   bool
}

type MinioRenderStorage struct {
	bucket string
	client *minio.Client
}

func NewMinioClient(ctx context.Context, opts Options) (*MinioRenderStorage, error) {
	bucket := opts.Bucket
	if bucket == "" {
		bucket = defaultBucket
		log.Printf("Bucket name is empty. Using default value %q...", bucket)
	}

	// подключаемся к минио - создаем клиента
	strg, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.User, opts.Pass, ""),
		Secure: opts.Secure,
	})
	if err != nil {
		return nil, err
	}

	// создаем бакет если его нет
	if err := ensureBucket(ctx, strg, bucket); err != nil {
		log.Println("Failed to create bucket in MinIO:", err)
		return nil, err
	}

	return &MinioRenderStorage{bucket: bucket, client: strg}, nil
}

func (s *MinioRenderStorage) Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error {
	if r == nil {
		return errors.New("nil reader passed to storage.Put")
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return err
	}

	return nil
}

func (s *MinioRenderStorage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// Get returns the object body with its content type. The caller closes the body.
func (s *MinioRenderStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	res, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}

	resStat, err := res.Stat()
	if err != nil {
		if cErr := res.Close(); cErr != nil {
			log.Println("Failed to close minio object after failed Stat:", cErr)
		}
		return nil, "", err
	}

	return res, resStat.ContentType, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}
