// Package s3storage mirrors uploaded CSV files into an S3-compatible bucket
// and serves them back for webhook-triggered ingestion.
package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/zeebo/xxh3"

	"github.com/semenovpa/csv_importer/internal/config"
	"github.com/semenovpa/csv_importer/internal/domain"
)

const contentTypeCSV = "text/csv"

type Storage struct {
	client *minio.Client
	bucket string
}

func New(cfg config.MinIO) (*Storage, error) {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &Storage{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// EnsureBucket creates the destination bucket unless it already exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: failed to check bucket %q: %w", domain.ErrStorageUnavailable, s.bucket, err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: failed to make bucket %q: %w", domain.ErrStorageUnavailable, s.bucket, err)
		}
	}

	return nil
}

// ObjectKey derives the storage key for a file's content. The key is a pure
// function of the name and bytes, so re-uploading the same file lands on the
// same object instead of accumulating copies.
func ObjectKey(filename string, data []byte) string {
	base := strings.ReplaceAll(filepath.Base(filename), " ", "_")
	return fmt.Sprintf("%016x_%s", xxh3.Hash(data), base)
}

// Store mirrors the file into the bucket under its derived key and returns a
// reference to the stored object. Identical content mirrored before is reused
// without a second upload.
func (s *Storage) Store(ctx context.Context, filename string, data []byte) (domain.StorageObjectRef, error) {
	if err := s.EnsureBucket(ctx); err != nil {
		return domain.StorageObjectRef{}, err
	}

	key := ObjectKey(filename, data)

	if stat, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err == nil {
		return domain.StorageObjectRef{
			Bucket: s.bucket,
			Key:    key,
			Size:   stat.Size,
			ETag:   stat.ETag,
		}, nil
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentTypeCSV})
	if err != nil {
		return domain.StorageObjectRef{}, fmt.Errorf("%w: failed to put object %q: %w", domain.ErrStorageUnavailable, key, err)
	}

	return domain.StorageObjectRef{
		Bucket: s.bucket,
		Key:    key,
		Size:   info.Size,
		ETag:   info.ETag,
	}, nil
}

// Fetch streams the object's bytes. Missing objects map to
// domain.ErrObjectNotFound so callers can tell "gone" from "unreachable".
func (s *Storage) Fetch(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get object %q: %w", domain.ErrStorageUnavailable, key, err)
	}

	// GetObject is lazy; surface missing objects before handing the reader out.
	if _, err := obj.Stat(); err != nil {
		obj.Close()

		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrObjectNotFound, bucket, key)
		}

		return nil, fmt.Errorf("%w: failed to stat object %q: %w", domain.ErrStorageUnavailable, key, err)
	}

	return obj, nil
}

// Exists reports whether the object is present without fetching its bytes.
func (s *Storage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	if isNotFound(err) {
		return false, nil
	}

	return false, fmt.Errorf("%w: failed to stat object %q: %w", domain.ErrStorageUnavailable, key, err)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}

type PingFunction func(context.Context) error

// Retry wraps a readiness probe with a bounded retry loop. The storage side
// may come up later than the importer; startup uses this to wait briefly
// instead of failing outright.
func Retry(log *slog.Logger, ping PingFunction, retries int, delay time.Duration) PingFunction {
	return func(ctx context.Context) error {
		for r := 0; ; r++ {
			err := ping(ctx)
			if err == nil || r >= retries {
				return err
			}

			log.Debug("storage connection attempt failed, retrying",
				slog.Int("attempt", r+1),
				slog.Int("max_retries", retries),
				slog.String("err", err.Error()))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
