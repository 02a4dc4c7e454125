package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const TableIngestions = "ingestions"

// IngestionsRepository is the processed-objects log: one row per mirrored
// object, holding the etag of the version last imported.
type IngestionsRepository struct {
	db *sql.DB
	qb sq.StatementBuilderType
}

func NewIngestionsRepository(db *sql.DB) *IngestionsRepository {
	return &IngestionsRepository{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// LastETag returns the etag recorded for the object, or "" when the object
// was never fully processed.
func (r *IngestionsRepository) LastETag(ctx context.Context, bucket, key string) (string, error) {
	query, args, err := r.qb.
		Select("etag").
		From(TableIngestions).
		Where(sq.Eq{"bucket": bucket, "object_key": key}).
		ToSql()
	if err != nil {
		return "", createQueryError(err)
	}

	var etag string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&etag)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", scanRowError(err)
	}

	return etag, nil
}

// MarkProcessed upserts the log entry for the object.
func (r *IngestionsRepository) MarkProcessed(ctx context.Context, bucket, key, etag string) error {
	query, args, err := r.qb.
		Insert(TableIngestions).
		Columns(
			"bucket",
			"object_key",
			"etag",
			"processed_at",
		).
		Values(
			bucket,
			key,
			etag,
			time.Now().UTC(),
		).
		Suffix(`ON CONFLICT (bucket, object_key) DO UPDATE SET
			etag = EXCLUDED.etag,
			processed_at = EXCLUDED.processed_at
		`).
		ToSql()
	if err != nil {
		return createQueryError(err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return executeQueryError(err)
	}

	return nil
}
