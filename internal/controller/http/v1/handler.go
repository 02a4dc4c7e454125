package v1

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/semenovpa/csv_importer/internal/domain"
)

type ImportHandler struct {
	log            *slog.Logger
	importer       Importer
	mirror         Mirror
	records        RecordsRepository
	ingestions     IngestionMarker
	reports        ReportGenerator
	maxUploadBytes int64
}

type Importer interface {
	Import(ctx context.Context, r io.Reader, source string) (*domain.ImportReport, error)
}

type Mirror interface {
	Store(ctx context.Context, filename string, data []byte) (domain.StorageObjectRef, error)
}

type RecordsRepository interface {
	Records(ctx context.Context) ([]*domain.Record, error)
	RecordsPage(ctx context.Context, limit, offset uint64) ([]*domain.Record, int, error)
}

type IngestionMarker interface {
	MarkProcessed(ctx context.Context, bucket, key, etag string) error
}

type ReportGenerator interface {
	GenerateRecordsPDF(records []*domain.Record) ([]byte, error)
}

func NewImportHandler(
	log *slog.Logger,
	importer Importer,
	mirror Mirror,
	records RecordsRepository,
	ingestions IngestionMarker,
	reports ReportGenerator,
	maxUploadBytes int64,
) *ImportHandler {
	return &ImportHandler{
		log:            log,
		importer:       importer,
		mirror:         mirror,
		records:        records,
		ingestions:     ingestions,
		reports:        reports,
		maxUploadBytes: maxUploadBytes,
	}
}

type UploadResponse struct {
	*domain.ImportReport
	Object       *domain.StorageObjectRef `json:"object,omitempty"`
	StorageError string                   `json:"storage_error,omitempty"`
}

func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		status := http.StatusBadRequest

		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
		}

		http.Error(w, err.Error(), status)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		http.Error(w, "please upload a .csv file", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.importer.Import(r.Context(), bytes.NewReader(data), header.Filename)
	if errors.Is(err, domain.ErrEncoding) {
		http.Error(w, "file is not valid UTF-8 text", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := UploadResponse{ImportReport: report}

	// Mirroring must not block data capture: a storage outage degrades to an
	// error reported alongside the import results.
	ref, err := h.mirror.Store(r.Context(), header.Filename, data)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to mirror upload",
			slog.String("filename", header.Filename),
			slog.String("err", err.Error()))

		resp.StorageError = err.Error()
	} else {
		resp.Object = &ref

		// Pre-mark the mirrored object so our own creation notification comes
		// back as an already-ingested replay.
		if err := h.ingestions.MarkProcessed(r.Context(), ref.Bucket, ref.Key, ref.ETag); err != nil {
			h.log.ErrorContext(r.Context(), "failed to mark mirrored object as ingested",
				slog.String("key", ref.Key),
				slog.String("err", err.Error()))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ImportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	records, err := h.records.Records(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="records_export.csv"`)

	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if err := enc.EncodeHeader(domain.Record{}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			h.log.ErrorContext(r.Context(), "failed to encode record",
				slog.Int64("id", record.ID),
				slog.String("err", err.Error()))
			return
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		h.log.ErrorContext(r.Context(), "failed to flush csv export", slog.String("err", err.Error()))
	}
}

func (h *ImportHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	records, err := h.records.Records(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	document, err := h.reports.GenerateRecordsPDF(records)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="records_export.pdf"`)
	w.Write(document)
}

var sampleCSV = []byte("name,email,age\nAlice,alice@example.com,30\nBob,bob@example.org,25\n")

func (h *ImportHandler) Sample(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sample_records.csv"`)
	w.Write(sampleCSV)
}

func (h *ImportHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type ListRecordsResponse struct {
	Records    []*domain.Record `json:"records"`
	Pagination Pagination       `json:"pagination"`
}

func (h *ImportHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	page, limit, err := h.parsePagination(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	offset := (page - 1) * limit

	records, total, err := h.records.RecordsPage(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ListRecordsResponse{
		Records: records,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + int(limit) - 1) / int(limit),
		},
	})
}

func (h *ImportHandler) parsePagination(r *http.Request) (page uint64, limit uint64, err error) {
	page, limit = 1, 10

	if p := r.URL.Query().Get("page"); p != "" {
		page, err = strconv.ParseUint(p, 10, 64)
		if err != nil || page == 0 {
			return 0, 0, errors.New("invalid page")
		}
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err = strconv.ParseUint(l, 10, 64)
		if err != nil || limit < 1 || limit > 100 {
			return 0, 0, errors.New("invalid limit, must be in [1;100]")
		}
	}

	return page, limit, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(v)
}
