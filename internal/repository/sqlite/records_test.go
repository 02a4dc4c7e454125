package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semenovpa/csv_importer/internal/config"
	"github.com/semenovpa/csv_importer/internal/domain"
	"github.com/semenovpa/csv_importer/internal/repository/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqlite.NewConnection(context.Background(), config.SQLite{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, sqlite.EnsureSchema(context.Background(), db))

	return db
}

func TestRecordsRepository_SaveRecord(t *testing.T) {
	t.Parallel()

	repo := sqlite.NewRecordsRepository(newTestDB(t))

	record := &domain.Record{Name: "Alice", Email: "alice@example.com", Age: 30}
	require.NoError(t, repo.SaveRecord(context.Background(), record))

	assert.Positive(t, record.ID)
	assert.WithinDuration(t, time.Now().UTC(), record.CreatedAt, time.Second)

	records, err := repo.Records(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)
	assert.Equal(t, "Alice", records[0].Name)
	assert.Equal(t, "alice@example.com", records[0].Email)
	assert.Equal(t, 30, records[0].Age)
	assert.WithinDuration(t, record.CreatedAt, records[0].CreatedAt, time.Second)
}

func TestRecordsRepository_SaveRecord_DuplicateEmail(t *testing.T) {
	t.Parallel()

	repo := sqlite.NewRecordsRepository(newTestDB(t))

	first := &domain.Record{Name: "Alice", Email: "alice@example.com", Age: 30}
	require.NoError(t, repo.SaveRecord(context.Background(), first))

	second := &domain.Record{Name: "Alicia", Email: "alice@example.com", Age: 31}
	err := repo.SaveRecord(context.Background(), second)
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)

	records, err := repo.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Alice", records[0].Name)
}

func TestRecordsRepository_Records_Order(t *testing.T) {
	t.Parallel()

	repo := sqlite.NewRecordsRepository(newTestDB(t))

	for i := 0; i < 3; i++ {
		record := &domain.Record{
			Name:  fmt.Sprintf("Person%d", i),
			Email: fmt.Sprintf("person%d@example.com", i),
			Age:   20 + i,
		}
		require.NoError(t, repo.SaveRecord(context.Background(), record))
	}

	records, err := repo.Records(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 3)
	for i, record := range records {
		assert.Equal(t, fmt.Sprintf("person%d@example.com", i), record.Email)
	}
}

func TestRecordsRepository_RecordsPage(t *testing.T) {
	t.Parallel()

	repo := sqlite.NewRecordsRepository(newTestDB(t))

	for i := 0; i < 5; i++ {
		record := &domain.Record{
			Name:  fmt.Sprintf("Person%d", i),
			Email: fmt.Sprintf("person%d@example.com", i),
			Age:   20 + i,
		}
		require.NoError(t, repo.SaveRecord(context.Background(), record))
	}

	records, total, err := repo.RecordsPage(context.Background(), 2, 0)
	require.NoError(t, err)

	assert.Equal(t, 5, total)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, "person4@example.com", records[0].Email)
	assert.Equal(t, "person3@example.com", records[1].Email)

	records, total, err = repo.RecordsPage(context.Background(), 2, 4)
	require.NoError(t, err)

	assert.Equal(t, 5, total)
	require.Len(t, records, 1)
	assert.Equal(t, "person0@example.com", records[0].Email)
}

func TestRecordsRepository_Records_Empty(t *testing.T) {
	t.Parallel()

	repo := sqlite.NewRecordsRepository(newTestDB(t))

	records, err := repo.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}
