package storage

import (
	"context"
	"errors"
	"io"

	gcs "cloud.google.com/go/storage"

	"github.com/yoockh/jobhunt/internal/utils"
)

// GCSUploader archives raw scraper payloads in a private bucket. Objects are
// never made public; the archive is for replaying or auditing a search.
type GCSUploader struct {
	client *gcs.Client
	bucket string
}

func NewGCSUploader(ctx context.Context, bucket string) (*GCSUploader, error) {
	if bucket == "" {
		return nil, errors.New("RESULTS_ARCHIVE_BUCKET is empty")
	}
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSUploader{client: c, bucket: bucket}, nil
}

func (u *GCSUploader) Close() error { return u.client.Close() }

// Upload writes objectName and returns its gs:// path. An existing object
// with the same name (a re-fetched task) is overwritten.
func (u *GCSUploader) Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (string, error) {
	const op = "GCSUploader.Upload"

	w := u.client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "private, no-store"
	w.ChunkSize = 0 // result sets fit in a single request

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", utils.E(utils.CodeUnavailable, op, "failed to write raw archive", err)
	}
	if err := w.Close(); err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "failed to finalize raw archive", err)
	}
	return GSPath(u.bucket, objectName), nil
}

// GSPath is the gs:// URI of an object.
func GSPath(bucket, objectName string) string {
	return "gs://" + bucket + "/" + objectName
}
