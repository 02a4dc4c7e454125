package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/semenovpa/csv_importer/internal/domain"
)

const TableRecords = "records"

var recordColumns = []string{
	"id",
	"name",
	"email",
	"age",
	"created_at",
}

type RecordsRepository struct {
	db *sql.DB
	qb sq.StatementBuilderType
}

func NewRecordsRepository(db *sql.DB) *RecordsRepository {
	return &RecordsRepository{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// SaveRecord inserts one record and fills in its assigned id. Violating the
// unique email index is reported as domain.ErrDuplicateEmail.
func (r *RecordsRepository) SaveRecord(ctx context.Context, record *domain.Record) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query, args, err := r.qb.
		Insert(TableRecords).
		Columns(
			"name",
			"email",
			"age",
			"created_at",
		).
		Values(
			record.Name,
			record.Email,
			record.Age,
			record.CreatedAt,
		).
		ToSql()
	if err != nil {
		return createQueryError(err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return uniqueViolationError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	record.ID = id

	return nil
}

// Records returns every record in insertion order, oldest first.
func (r *RecordsRepository) Records(ctx context.Context) ([]*domain.Record, error) {
	query, args, err := r.qb.
		Select(recordColumns...).
		From(TableRecords).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, executeQueryError(err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// RecordsPage returns one page of records, newest first, plus the total count.
func (r *RecordsRepository) RecordsPage(ctx context.Context, limit, offset uint64) ([]*domain.Record, int, error) {
	query, args, err := r.qb.
		Select("COUNT(*)").
		From(TableRecords).
		ToSql()
	if err != nil {
		return nil, -1, createQueryError(err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return nil, -1, scanRowError(err)
	}

	query, args, err = r.qb.
		Select(recordColumns...).
		From(TableRecords).
		OrderBy("id DESC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, -1, createQueryError(err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, -1, executeQueryError(err)
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		return nil, -1, err
	}

	return records, total, nil
}

func collectRecords(rows *sql.Rows) ([]*domain.Record, error) {
	var records []*domain.Record

	for rows.Next() {
		var record domain.Record
		err := rows.Scan(
			&record.ID,
			&record.Name,
			&record.Email,
			&record.Age,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, scanRowError(err)
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, collectRowsError(err)
	}

	return records, nil
}
