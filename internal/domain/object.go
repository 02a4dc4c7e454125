package domain

// StorageObjectRef identifies a mirrored file in object storage.
type StorageObjectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Size   int64  `json:"size"`
	ETag   string `json:"etag"`
}
