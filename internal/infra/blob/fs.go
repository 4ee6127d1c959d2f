package blob

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"ourtextscores/internal/domain/catalog"
)

// FSStore stores objects under root/<bucket>/<key> on the local filesystem.
type FSStore struct {
	root string
}

func NewFS(root string) (*FSStore, error) {
	if root == "" {
		return nil, errors.New("blob: filesystem root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(bucket, key string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(s.root, bucket, filepath.FromSlash(key)))
	if !strings.HasPrefix(cleaned, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", errors.New("blob: key escapes store root")
	}
	return cleaned, nil
}

func (s *FSStore) Put(_ context.Context, bucket, key string, data []byte, contentType string) (catalog.StorageLocator, error) {
	p, err := s.path(bucket, key)
	if err != nil {
		return catalog.StorageLocator{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return catalog.StorageLocator{}, err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return catalog.StorageLocator{}, err
	}
	return catalog.StorageLocator{
		Bucket:      bucket,
		Key:         key,
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

func (s *FSStore) Get(_ context.Context, loc catalog.StorageLocator) ([]byte, error) {
	p, err := s.path(loc.Bucket, loc.Key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *FSStore) Delete(_ context.Context, loc catalog.StorageLocator) error {
	p, err := s.path(loc.Bucket, loc.Key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *FSStore) Exists(_ context.Context, loc catalog.StorageLocator) (bool, error) {
	p, err := s.path(loc.Bucket, loc.Key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
