package pipeline

import (
	"context"
	"io"

	"github.com/semenovpa/csv_importer/internal/domain"
)

type RecordSaver interface {
	SaveRecord(ctx context.Context, record *domain.Record) error
}

type ObjectStore interface {
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Fetch(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

type IngestionLog interface {
	LastETag(ctx context.Context, bucket, key string) (string, error)
	MarkProcessed(ctx context.Context, bucket, key, etag string) error
}
