package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mpaguilar/msa-toy/internal/domain"
)

const DefaultCacheDir = "msa/cache"

// FileCacheStore keeps one JSON file per key under dir.
type FileCacheStore struct {
	dir string
}

func NewFileCacheStore(dir string) (*FileCacheStore, error) {
	if dir == "" {
		dir = DefaultCacheDir
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}
	return &FileCacheStore{dir: dir}, nil
}

func (s *FileCacheStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileCacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	return data, nil
}

// Put writes through a temp file so readers never see a partial entry.
func (s *FileCacheStore) Put(ctx context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

func (s *FileCacheStore) Delete(ctx context.Context, key string) (bool, error) {
	err := os.Remove(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove cache file: %w", err)
	}
	return true, nil
}

func (s *FileCacheStore) Close() error {
	return nil
}
