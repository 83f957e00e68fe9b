package application

import "context"

// MediaStore is the narrow contract with the external media host: upload a
// local file, get back a public URL. Implementations own the local file and
// must remove it whether or not the upload succeeds.
type MediaStore interface {
	UploadLocalFile(ctx context.Context, localPath, objectPath, contentType string) (string, error)
}

// CleanupQueue accepts best-effort deletion requests for media objects that
// became orphaned, e.g. a replaced avatar.
type CleanupQueue interface {
	PublishCleanup(ctx context.Context, objectURL, reason string) error
}
