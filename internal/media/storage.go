package media

import (
	"context"
	"errors"
)

var (
	// ErrStorageUnavailable indicates the asset storage is not configured.
	ErrStorageUnavailable = errors.New("media storage unavailable")
)

// UploadResult describes a stored asset. Duration is populated only for
// video content.
type UploadResult struct {
	URL      string
	Duration float64
}

// Storage persists a local temporary file to durable object storage and
// returns its public location. Implementations remove the local file whether
// or not the upload succeeds.
type Storage interface {
	Upload(ctx context.Context, localPath string) (UploadResult, error)
}
