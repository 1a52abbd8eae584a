package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erp/labels/internal/domain/shared"
)

// FileSystemConfig contains configuration for file system storage
type FileSystemConfig struct {
	// BasePath is the root directory. Default: /data/labels
	BasePath string
	// BaseURL is the URL prefix for stored files, empty when not served
	BaseURL string
	Logger  *zap.Logger
}

// FileSystemStore stores documents under a base directory
type FileSystemStore struct {
	config *FileSystemConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewFileSystemStore creates the base directory if needed
func NewFileSystemStore(config *FileSystemConfig) (*FileSystemStore, error) {
	if config == nil {
		config = &FileSystemConfig{}
	}
	if config.BasePath == "" {
		config.BasePath = "/data/labels"
	}
	if err := os.MkdirAll(config.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", config.BasePath, err)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSystemStore{config: config, logger: logger, now: time.Now}, nil
}

// Store writes the document to {base}/{year}/{month}/{job_id}/{filename}
func (s *FileSystemStore) Store(ctx context.Context, req *StoreRequest) (*StoreResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}

	key := objectKey("", req, s.now())
	fullPath := filepath.Join(s.config.BasePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, req.Data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}

	s.logger.Info("document stored",
		zap.String("path", fullPath),
		zap.Int("size", len(req.Data)))

	return &StoreResult{Key: key, URL: s.url(key), Size: int64(len(req.Data))}, nil
}

// Get opens a stored document
func (s *FileSystemStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Document not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return file, nil
}

// Delete removes a stored document
func (s *FileSystemStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	s.logger.Info("document deleted", zap.String("key", key))
	return nil
}

// CleanupOlderThan removes PDFs whose modification time is older than age
func (s *FileSystemStore) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := s.now().Add(-age)
	deleted := 0

	err := filepath.WalkDir(s.config.BasePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".pdf" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				deleted++
				s.logger.Debug("deleted old document", zap.String("path", path))
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return deleted, fmt.Errorf("cleanup walk failed: %w", err)
	}

	s.logger.Info("cleanup completed", zap.Int("deleted", deleted), zap.Duration("age", age))
	return deleted, nil
}

// resolve maps a key to a path under the base directory, rejecting escapes
func (s *FileSystemStore) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || containsDotDot(key) {
		s.logger.Warn("blocked potentially malicious path", zap.String("key", key))
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Invalid storage key")
	}

	absBase, err := filepath.Abs(s.config.BasePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.config.BasePath, clean))
	if err != nil {
		return "", fmt.Errorf("failed to resolve file path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		s.logger.Warn("path escape attempt blocked", zap.String("key", key))
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Invalid storage key")
	}
	return absPath, nil
}

func (s *FileSystemStore) url(key string) string {
	if s.config.BaseURL == "" {
		return ""
	}
	return strings.TrimSuffix(s.config.BaseURL, "/") + "/" + key
}

func containsDotDot(p string) bool {
	parts := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	return slices.Contains(parts, "..")
}

// Ensure FileSystemStore implements ArtifactStore
var _ ArtifactStore = (*FileSystemStore)(nil)
