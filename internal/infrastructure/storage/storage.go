// Package storage archives generated label PDFs on the local file system or
// in S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/labels/internal/infrastructure/config"
)

// ArtifactStore stores and retrieves generated documents
type ArtifactStore interface {
	// Store saves a document and returns where it went
	Store(ctx context.Context, req *StoreRequest) (*StoreResult, error)
	// Get opens a stored document by key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes a stored document. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// StoreRequest contains the parameters for storing a document
type StoreRequest struct {
	JobID       uuid.UUID
	Filename    string
	ContentType string
	Data        []byte
}

// StoreResult contains the result of storing a document
type StoreResult struct {
	// Key is the storage key, relative to the store root
	Key string
	// URL is where the document can be fetched, when the store exposes one
	URL  string
	Size int64
}

func (r *StoreRequest) validate() error {
	if r == nil {
		return fmt.Errorf("store request is nil")
	}
	if r.JobID == uuid.Nil {
		return fmt.Errorf("job ID is required")
	}
	if len(r.Data) == 0 {
		return fmt.Errorf("document data is empty")
	}
	return nil
}

// objectKey builds {year}/{month}/{job_id}/{filename}
func objectKey(prefix string, req *StoreRequest, now time.Time) string {
	name := req.Filename
	if name == "" {
		name = "labels.pdf"
	}
	return path.Join(
		prefix,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		req.JobID.String(),
		path.Base(name),
	)
}

// New builds the store selected by cfg.Driver. The "none" driver returns a nil
// store and no error; callers skip archiving then.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (ArtifactStore, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "filesystem":
		store, err := NewFileSystemStore(&FileSystemConfig{
			BasePath: cfg.BasePath,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		store, err := NewS3Store(&cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
