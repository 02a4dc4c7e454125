package domain

import "strings"

// objectCreatedPrefix covers s3:ObjectCreated:Put, :Post, :Copy and
// :CompleteMultipartUpload.
const objectCreatedPrefix = "s3:ObjectCreated:"

// WebhookEvent is one object-storage notification record, reduced to the
// fields ingestion cares about.
type WebhookEvent struct {
	EventName string
	Bucket    string
	Key       string
	ETag      string
}

// Actionable reports whether the event announces a newly created object.
// Everything else (removals, access events) is noise for the importer.
func (e WebhookEvent) Actionable() bool {
	return strings.HasPrefix(e.EventName, objectCreatedPrefix)
}
