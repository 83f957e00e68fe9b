package helpers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// NewGCSClient creates a Google Cloud Storage client. If credsPath is empty, ADC is used.
func NewGCSClient(ctx context.Context, credsPath string) (*storage.Client, error) {
	if credsPath == "" {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(ctx, option.WithCredentialsFile(credsPath))
}

// GCSMedia implements the media-host contract over a GCS bucket: hand it a
// local file path, get back a public URL.
type GCSMedia struct {
	Client *storage.Client
	Bucket string
}

func NewGCSMedia(client *storage.Client, bucket string) *GCSMedia {
	return &GCSMedia{Client: client, Bucket: bucket}
}

// UploadLocalFile uploads the file at localPath into bucket/objectPath and
// returns the public URL. The local file is removed whether or not the
// upload succeeds; the caller never has to clean up temp files.
func (g *GCSMedia) UploadLocalFile(ctx context.Context, localPath, objectPath, contentType string) (string, error) {
	defer func() { _ = os.Remove(localPath) }()

	if g.Client == nil || g.Bucket == "" {
		return "", errors.New("gcs not configured")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	wc := g.Client.Bucket(g.Bucket).Object(objectPath).NewWriter(ctx)
	wc.ContentType = contentType
	wc.ChunkSize = 0 // disable chunking for small files
	if _, err := io.Copy(wc, f); err != nil {
		_ = wc.Close()
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", err
	}
	return PublicURL(g.Bucket, objectPath), nil
}

// DeleteByURL removes the object a previously returned public URL points at.
// URLs outside the configured bucket are rejected.
func (g *GCSMedia) DeleteByURL(ctx context.Context, url string) error {
	if g.Client == nil || g.Bucket == "" {
		return errors.New("gcs not configured")
	}
	objectPath, ok := objectPathFromURL(g.Bucket, url)
	if !ok {
		return fmt.Errorf("url %q is not in bucket %q", url, g.Bucket)
	}
	return g.Client.Bucket(g.Bucket).Object(objectPath).Delete(ctx)
}

// PublicURL builds a public URL for an object (assuming public read access or signed URLs)
func PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, objectPath)
}

func objectPathFromURL(bucket, url string) (string, bool) {
	prefix := fmt.Sprintf("https://storage.googleapis.com/%s/", bucket)
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
