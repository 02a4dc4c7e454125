package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/semenovpa/csv_importer/internal/config"
	v1 "github.com/semenovpa/csv_importer/internal/controller/http/v1"
	"github.com/semenovpa/csv_importer/internal/infrastructure/report_generator"
	"github.com/semenovpa/csv_importer/internal/pipeline"
	"github.com/semenovpa/csv_importer/internal/repository/sqlite"
	"github.com/semenovpa/csv_importer/internal/s3storage"
)

const (
	storageRetries    = 3
	storageRetryDelay = 2 * time.Second
)

type App struct {
	log *slog.Logger
	cfg *config.Config
}

func New(log *slog.Logger, cfg *config.Config) *App {
	return &App{
		log: log,
		cfg: cfg,
	}
}

func (a *App) Run(ctx context.Context) error {
	a.log.InfoContext(ctx, "starting app",
		slog.String("db_path", a.cfg.SQLite.Path),
		slog.String("minio_endpoint", a.cfg.MinIO.Endpoint),
		slog.String("bucket", a.cfg.MinIO.Bucket),
	)

	db, err := sqlite.NewConnection(ctx, a.cfg.SQLite)
	if err != nil {
		return fmt.Errorf("failed to create db connection: %w", err)
	}
	defer db.Close()

	if err := sqlite.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("failed to ensure db schema: %w", err)
	}

	recordsRepository := sqlite.NewRecordsRepository(db)
	ingestionsRepository := sqlite.NewIngestionsRepository(db)

	store, err := s3storage.New(a.cfg.MinIO)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}

	// A storage outage must not keep the importer from starting: the bucket is
	// ensured again on every mirror call, so here we only wait briefly and warn.
	ensureBucket := s3storage.Retry(a.log, store.EnsureBucket, storageRetries, storageRetryDelay)
	if err := ensureBucket(ctx); err != nil {
		a.log.WarnContext(ctx, "object storage is not reachable yet, mirroring will fail until it is",
			slog.String("err", err.Error()))
	}

	return a.startServer(ctx, recordsRepository, ingestionsRepository, store)
}

func (a *App) startServer(
	ctx context.Context,
	recordsRepo *sqlite.RecordsRepository,
	ingestionsRepo *sqlite.IngestionsRepository,
	store *s3storage.Storage,
) error {
	importer := pipeline.NewImporter(a.log, recordsRepo)
	ingestor := pipeline.NewIngestor(a.log, store, importer, ingestionsRepo, a.cfg.App.IngestTimeout)

	importHandler := v1.NewImportHandler(
		a.log,
		importer,
		store,
		recordsRepo,
		ingestionsRepo,
		report_generator.New(),
		a.cfg.App.MaxUploadBytes,
	)
	webhookHandler := v1.NewWebhookHandler(a.log, ingestor)
	server := v1.NewServer(a.cfg.HTTP, importHandler, webhookHandler)

	erg, ctx := errgroup.WithContext(ctx)

	erg.Go(func() error {
		a.log.InfoContext(ctx, "starting http server",
			slog.String("addr", net.JoinHostPort(a.cfg.HTTP.Host, a.cfg.HTTP.Port)),
		)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}

		return nil
	})

	erg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if err := erg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.log.ErrorContext(ctx, "app stopped with error", slog.String("err", err.Error()))

		return err
	}

	a.log.InfoContext(ctx, "app stopped gracefully")

	return nil
}
