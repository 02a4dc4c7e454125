package v1_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/semenovpa/csv_importer/internal/controller/http/v1"
	"github.com/semenovpa/csv_importer/internal/domain"
	"github.com/semenovpa/csv_importer/internal/pipeline"
)

type fakeIngestor struct {
	result *pipeline.IngestResult
	err    error
	events []domain.WebhookEvent
}

func (f *fakeIngestor) Ingest(_ context.Context, event domain.WebhookEvent) (*pipeline.IngestResult, error) {
	f.events = append(f.events, event)

	if f.err != nil {
		return nil, f.err
	}

	return f.result, nil
}

func newTestWebhookHandler(ingestor *fakeIngestor) *v1.WebhookHandler {
	return v1.NewWebhookHandler(slog.New(slog.DiscardHandler), ingestor)
}

const notificationPayload = `{
	"EventName": "s3:ObjectCreated:Put",
	"Key": "uploads/people.csv",
	"Records": [
		{
			"eventVersion": "2.0",
			"eventSource": "minio:s3",
			"eventName": "s3:ObjectCreated:Put",
			"s3": {
				"bucket": {"name": "uploads"},
				"object": {"key": "people.csv", "size": 120, "eTag": "etag-1"}
			}
		}
	]
}`

func postEvent(handler *v1.WebhookHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/obs-event", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, req)

	return rec
}

func TestWebhookHandler_HandleEvent_ImportsObject(t *testing.T) {
	t.Parallel()

	ingestor := &fakeIngestor{result: &pipeline.IngestResult{
		Report: &domain.ImportReport{TotalRows: 2, Inserted: 2},
	}}
	handler := newTestWebhookHandler(ingestor)

	rec := postEvent(handler, notificationPayload)

	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, ingestor.events, 1)
	assert.Equal(t, domain.WebhookEvent{
		EventName: "s3:ObjectCreated:Put",
		Bucket:    "uploads",
		Key:       "people.csv",
		ETag:      "etag-1",
	}, ingestor.events[0])

	var resp v1.EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Items[0].Inserted)
	assert.Empty(t, resp.Items[0].Error)
}

func TestWebhookHandler_HandleEvent_UnescapesObjectKey(t *testing.T) {
	t.Parallel()

	ingestor := &fakeIngestor{result: &pipeline.IngestResult{Ignored: true, Skip: "not a .csv object"}}
	handler := newTestWebhookHandler(ingestor)

	payload := `{"Records":[{"eventName":"s3:ObjectCreated:Put","s3":{"bucket":{"name":"uploads"},"object":{"key":"my+people+file.csv","eTag":"etag-1"}}}]}`

	rec := postEvent(handler, payload)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ingestor.events, 1)
	assert.Equal(t, "my people file.csv", ingestor.events[0].Key)
}

func TestWebhookHandler_HandleEvent_NoisePayloads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "this is not json"},
		{name: "empty object", body: "{}"},
		{name: "empty records", body: `{"Records": []}`},
		{name: "wrong shape", body: `{"foo": "bar"}`},
		{name: "empty body", body: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ingestor := &fakeIngestor{}
			handler := newTestWebhookHandler(ingestor)

			rec := postEvent(handler, tt.body)

			// Harmless noise must never trigger sender retries.
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, ingestor.events)

			var resp v1.EventResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "ignored", resp.Status)
		})
	}
}

func TestWebhookHandler_HandleEvent_SkippedEvent(t *testing.T) {
	t.Parallel()

	ingestor := &fakeIngestor{result: &pipeline.IngestResult{
		Ignored: true,
		Skip:    "object version already ingested",
	}}
	handler := newTestWebhookHandler(ingestor)

	rec := postEvent(handler, notificationPayload)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp v1.EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "object version already ingested", resp.Items[0].Skipped)
}

func TestWebhookHandler_HandleEvent_TransientFailureRequestsRetry(t *testing.T) {
	t.Parallel()

	ingestor := &fakeIngestor{err: domain.ErrStorageUnavailable}
	handler := newTestWebhookHandler(ingestor)

	rec := postEvent(handler, notificationPayload)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp v1.EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "retry", resp.Status)
	require.Len(t, resp.Items, 1)
	assert.NotEmpty(t, resp.Items[0].Error)
}

func TestWebhookHandler_HandleEvent_BrokenObjectIsNotRetried(t *testing.T) {
	t.Parallel()

	ingestor := &fakeIngestor{err: domain.ErrEncoding}
	handler := newTestWebhookHandler(ingestor)

	rec := postEvent(handler, notificationPayload)

	// A permanently broken object must not cause redelivery loops.
	require.Equal(t, http.StatusOK, rec.Code)

	var resp v1.EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Items, 1)
	assert.NotEmpty(t, resp.Items[0].Error)
}
