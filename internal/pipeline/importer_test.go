package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semenovpa/csv_importer/internal/domain"
	"github.com/semenovpa/csv_importer/internal/pipeline"
)

// fakeRecordStore mimics the unique-email behavior of the real store.
type fakeRecordStore struct {
	mu      sync.Mutex
	records []*domain.Record
	saveErr error
}

func (f *fakeRecordStore) SaveRecord(_ context.Context, record *domain.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return f.saveErr
	}

	for _, existing := range f.records {
		if existing.Email == record.Email {
			return domain.ErrDuplicateEmail
		}
	}

	record.ID = int64(len(f.records) + 1)
	f.records = append(f.records, record)

	return nil
}

func TestImporter_Import_HappyPath(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.DiscardHandler)
	store := &fakeRecordStore{}

	input := "name,email,age\nAlice,alice@example.com,30\nBob,bob@example.org,25\n"

	report, err := pipeline.NewImporter(log, store).Import(context.Background(), strings.NewReader(input), "people.csv")
	require.NoError(t, err)

	assert.Equal(t, "people.csv", report.Source)
	assert.Equal(t, 2, report.TotalRows)
	assert.Equal(t, 2, report.Inserted)
	assert.Zero(t, report.DuplicateEmail)
	assert.Zero(t, report.Invalid)
	assert.Empty(t, report.Rejections)

	require.Len(t, store.records, 2)
	assert.Equal(t, "alice@example.com", store.records[0].Email)
	assert.Equal(t, "bob@example.org", store.records[1].Email)
}

func TestImporter_Import_RejectsRowsWithoutAborting(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.DiscardHandler)
	store := &fakeRecordStore{}

	input := strings.Join([]string{
		"name,email,age",
		"Alice,alice@example.com,30",
		"Bob,bob@example.org,25",
		"Cara,cara@example.net,0",
		"D,short@example.com,20",
		"Eve,eve@example.com,44",
	}, "\n") + "\n"

	report, err := pipeline.NewImporter(log, store).Import(context.Background(), strings.NewReader(input), "mixed.csv")
	require.NoError(t, err)

	assert.Equal(t, 5, report.TotalRows)
	assert.Equal(t, 3, report.Inserted)
	assert.Equal(t, 2, report.Invalid)
	assert.Zero(t, report.DuplicateEmail)

	require.Len(t, report.Rejections, 2)
	assert.Equal(t, domain.Rejection{Row: 3, Reason: domain.ReasonAgeOutOfRange}, report.Rejections[0])
	assert.Equal(t, domain.Rejection{Row: 4, Reason: domain.ReasonNameTooShort}, report.Rejections[1])
}

func TestImporter_Import_DuplicateEmailWithinFile(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.DiscardHandler)
	store := &fakeRecordStore{}

	input := "name,email,age\nAlice,alice@example.com,30\nAlicia,ALICE@example.com,31\n"

	report, err := pipeline.NewImporter(log, store).Import(context.Background(), strings.NewReader(input), "dup.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalRows)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 1, report.DuplicateEmail)
	assert.Zero(t, report.Invalid)

	require.Len(t, report.Rejections, 1)
	assert.Equal(t, domain.Rejection{Row: 2, Reason: domain.ReasonDuplicateEmail}, report.Rejections[0])

	// Exactly one record with that email remains.
	require.Len(t, store.records, 1)
	assert.Equal(t, "alice@example.com", store.records[0].Email)
}

func TestImporter_Import_DuplicateEmailAcrossImports(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.DiscardHandler)
	store := &fakeRecordStore{}
	importer := pipeline.NewImporter(log, store)

	first := "name,email,age\nAlice,alice@example.com,30\n"
	report, err := importer.Import(context.Background(), strings.NewReader(first), "first.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)

	second := "name,email,age\nAlicia,alice@example.com,31\n"
	report, err = importer.Import(context.Background(), strings.NewReader(second), "second.csv")
	require.NoError(t, err)

	assert.Zero(t, report.Inserted)
	assert.Equal(t, 1, report.DuplicateEmail)
	require.Len(t, store.records, 1)
}

func TestImporter_Import_MalformedRowsAreCounted(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.DiscardHandler)
	store := &fakeRecordStore{}

	input := "name,email,age\nAlice,alice@example.com,30\nbroken,row\nBob,bob@example.org,25\n"

	report, err := pipeline.NewImporter(log, store).Import(context.Background(), strings.NewReader(input), "broken.csv")
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalRows)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 1, report.Invalid)

	require.Len(t, report.Rejections, 1)
	assert.Equal(t, domain.Rejection{Row: 2, Reason: domain.ReasonMalformedRow}, report.Rejections[0])
}

func TestImporter_Import_EncodingErrorIsFatal(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.DiscardHandler)
	store := &fakeRecordStore{}

	input := "name,email,age\nAl\xffce,alice@example.com,30\n"

	_, err := pipeline.NewImporter(log, store).Import(context.Background(), strings.NewReader(input), "bad.csv")
	require.ErrorIs(t, err, domain.ErrEncoding)
	assert.Empty(t, store.records)
}

func TestImporter_Import_StoreFailureIsFatal(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.DiscardHandler)
	store := &fakeRecordStore{saveErr: errors.New("database is locked")}

	input := "name,email,age\nAlice,alice@example.com,30\n"

	_, err := pipeline.NewImporter(log, store).Import(context.Background(), strings.NewReader(input), "people.csv")
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestImporter_Import_HeaderlessFile(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.DiscardHandler)
	store := &fakeRecordStore{}

	input := "Alice,alice@example.com,30\nBob,bob@example.org,25\n"

	report, err := pipeline.NewImporter(log, store).Import(context.Background(), strings.NewReader(input), "headerless.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalRows)
	assert.Equal(t, 2, report.Inserted)
}
