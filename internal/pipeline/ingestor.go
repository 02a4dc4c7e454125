package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/semenovpa/csv_importer/internal/domain"
)

// Ingestor turns object-storage notifications into imports, at most once per
// (bucket, key, etag). Events for the same object serialize on a per-key lock
// covering the log check, the fetch and the import, so replayed or concurrent
// deliveries cannot race each other into duplicate work.
type Ingestor struct {
	log        *slog.Logger
	objects    ObjectStore
	importer   *Importer
	ingestions IngestionLog
	locks      *keyLocks
	timeout    time.Duration
}

func NewIngestor(
	log *slog.Logger,
	objects ObjectStore,
	importer *Importer,
	ingestions IngestionLog,
	timeout time.Duration,
) *Ingestor {
	return &Ingestor{
		log:        log,
		objects:    objects,
		importer:   importer,
		ingestions: ingestions,
		locks:      newKeyLocks(),
		timeout:    timeout,
	}
}

// IngestResult reports what one event ended up doing: either the event was
// ignored (with the reason in Skip) or an import ran and Report is set.
type IngestResult struct {
	Ignored bool
	Skip    string
	Report  *domain.ImportReport
}

func ignored(why string) *IngestResult {
	return &IngestResult{Ignored: true, Skip: why}
}

func (in *Ingestor) Ingest(ctx context.Context, event domain.WebhookEvent) (*IngestResult, error) {
	log := in.log.With(
		slog.String("bucket", event.Bucket),
		slog.String("key", event.Key),
		slog.String("etag", event.ETag),
	)

	if !event.Actionable() {
		log.DebugContext(ctx, "event does not announce an object creation, ignoring",
			slog.String("event_name", event.EventName))
		return ignored("event type not actionable"), nil
	}

	if event.Bucket == "" || event.Key == "" {
		return ignored("event missing bucket or object key"), nil
	}

	if !strings.EqualFold(path.Ext(event.Key), ".csv") {
		log.DebugContext(ctx, "object is not a csv, ignoring")
		return ignored("not a .csv object"), nil
	}

	if in.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.timeout)
		defer cancel()
	}

	release, err := in.locks.acquire(ctx, event.Bucket+"/"+event.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire ingestion lock: %w", err)
	}
	defer release()

	lastETag, err := in.ingestions.LastETag(ctx, event.Bucket, event.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to read ingestion log: %w", err)
	}
	if lastETag != "" && lastETag == event.ETag {
		log.InfoContext(ctx, "object version already ingested, ignoring replayed event")
		return ignored("object version already ingested"), nil
	}

	exists, err := in.objects.Exists(ctx, event.Bucket, event.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to check object existence: %w", err)
	}
	if !exists {
		log.InfoContext(ctx, "object no longer exists, ignoring")
		return ignored("object not found"), nil
	}

	obj, err := in.objects.Fetch(ctx, event.Bucket, event.Key)
	// The object can vanish between the existence check and the fetch.
	if errors.Is(err, domain.ErrObjectNotFound) {
		log.InfoContext(ctx, "object no longer exists, ignoring")
		return ignored("object not found"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object: %w", err)
	}
	defer obj.Close()

	report, err := in.importer.Import(ctx, obj, event.Bucket+"/"+event.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to import object: %w", err)
	}

	if err := in.ingestions.MarkProcessed(ctx, event.Bucket, event.Key, event.ETag); err != nil {
		return nil, fmt.Errorf("failed to update ingestion log: %w", err)
	}

	log.InfoContext(ctx, "object ingested",
		slog.Int("inserted", report.Inserted),
		slog.Int("duplicate_email", report.DuplicateEmail),
		slog.Int("invalid", report.Invalid),
	)

	return &IngestResult{Report: report}, nil
}
