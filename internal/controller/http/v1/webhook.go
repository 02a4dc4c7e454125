package v1

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/semenovpa/csv_importer/internal/domain"
	"github.com/semenovpa/csv_importer/internal/pipeline"
)

// notification mirrors the bucket-notification payload S3-compatible stores
// post to webhook targets. Only the fields ingestion needs are decoded; a body
// that does not fit this shape is treated as ignorable noise, never as an
// error the sender would retry forever.
type notification struct {
	EventName string `json:"EventName"`
	Records   []struct {
		EventName string `json:"eventName"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key  string `json:"key"`
				Size int64  `json:"size"`
				ETag string `json:"eTag"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

type WebhookHandler struct {
	log      *slog.Logger
	ingestor Ingestor
}

type Ingestor interface {
	Ingest(ctx context.Context, event domain.WebhookEvent) (*pipeline.IngestResult, error)
}

func NewWebhookHandler(log *slog.Logger, ingestor Ingestor) *WebhookHandler {
	return &WebhookHandler{
		log:      log,
		ingestor: ingestor,
	}
}

type EventItemResult struct {
	Bucket   string `json:"bucket"`
	Object   string `json:"object"`
	Skipped  string `json:"skipped,omitempty"`
	Inserted int    `json:"inserted"`
	Errors   int    `json:"errors"`
	Error    string `json:"error,omitempty"`
}

type EventResponse struct {
	Status string            `json:"status"`
	Items  []EventItemResult `json:"items,omitempty"`
}

func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var payload notification
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.Records) == 0 {
		writeJSON(w, http.StatusOK, EventResponse{Status: "ignored"})
		return
	}

	var (
		items     []EventItemResult
		transient bool
	)

	for _, rec := range payload.Records {
		eventName := rec.EventName
		if eventName == "" {
			eventName = payload.EventName
		}

		event := domain.WebhookEvent{
			EventName: eventName,
			Bucket:    rec.S3.Bucket.Name,
			Key:       unescapeObjectKey(rec.S3.Object.Key),
			ETag:      rec.S3.Object.ETag,
		}

		item := EventItemResult{Bucket: event.Bucket, Object: event.Key}

		result, err := h.ingestor.Ingest(r.Context(), event)
		switch {
		case errors.Is(err, domain.ErrEncoding):
			// The object is permanently broken; a redelivery cannot help.
			item.Error = "object is not valid UTF-8 text"
		case err != nil:
			h.log.ErrorContext(r.Context(), "failed to ingest object",
				slog.String("bucket", event.Bucket),
				slog.String("key", event.Key),
				slog.String("err", err.Error()))

			item.Error = err.Error()
			transient = true
		case result.Ignored:
			item.Skipped = result.Skip
		default:
			item.Inserted = result.Report.Inserted
			item.Errors = result.Report.Invalid + result.Report.DuplicateEmail
		}

		items = append(items, item)
	}

	// Non-2xx makes at-least-once senders redeliver; the ingestion log absorbs
	// the replays once the transient failure clears.
	status, state := http.StatusOK, "ok"
	if transient {
		status, state = http.StatusInternalServerError, "retry"
	}

	writeJSON(w, status, EventResponse{Status: state, Items: items})
}

// unescapeObjectKey undoes the URL escaping notification payloads apply to
// object keys ("my%20file.csv" arrives for "my file.csv").
func unescapeObjectKey(raw string) string {
	key, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}

	return key
}
