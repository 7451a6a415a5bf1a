package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"

	"github.com/shazhou-ww/casfa-sub008/internal/compression"
)

const defaultCacheSize = 256

// LocalStore implements Store on a filesystem.
//
// Storage layout (namespace-isolated):
//
//	basePath/namespace/
//	  objects/
//	    AB/CDEF...  (zstd-compressed node encodings, key-sharded)
//	  refs/
//	    main  (plain text root key)
//
// The filesystem is an afero.Fs so tests run against an in-memory fs.
type LocalStore struct {
	fsys       afero.Fs
	basePath   string
	namespace  string
	cache      *lru.Cache[string, []byte]
	compressor *compression.Compressor
}

// NewLocalStore opens (creating if needed) the namespace under basePath.
// cacheSize <= 0 selects a default; compressionLevel <= 0 stores objects
// uncompressed.
func NewLocalStore(fsys afero.Fs, basePath, namespace string, cacheSize, compressionLevel int) (*LocalStore, error) {
	nsPath := filepath.Join(basePath, namespace)
	for _, dir := range []string{filepath.Join(nsPath, "objects"), filepath.Join(nsPath, "refs")} {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	compressor, err := compression.NewCompressor(compressionLevel)
	if err != nil {
		return nil, fmt.Errorf("create compressor: %w", err)
	}

	return &LocalStore{
		fsys:       fsys,
		basePath:   nsPath,
		namespace:  namespace,
		cache:      cache,
		compressor: compressor,
	}, nil
}

// Get retrieves an object by key.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}

	compressed, err := afero.ReadFile(s.fsys, s.objectPath(key))
	if err != nil {
		if isNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}

	data := s.compressor.Decompress(compressed)
	s.cache.Add(key, data)
	return data, nil
}

// Put stores an object under its content key. Existing objects are left
// untouched: the key fixes the bytes, rewriting them can only waste I/O.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	path := s.objectPath(key)
	if exists, err := afero.Exists(s.fsys, path); err == nil && exists {
		return nil
	}

	if err := s.fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	if err := afero.WriteFile(s.fsys, path, s.compressor.Compress(data), 0644); err != nil {
		return fmt.Errorf("write object %s: %w", key, err)
	}

	s.cache.Add(key, data)
	return nil
}

// Has checks whether an object exists.
func (s *LocalStore) Has(ctx context.Context, key string) (bool, error) {
	if s.cache.Contains(key) {
		return true, nil
	}
	exists, err := afero.Exists(s.fsys, s.objectPath(key))
	if err != nil {
		return false, fmt.Errorf("stat object %s: %w", key, err)
	}
	return exists, nil
}

// GetRef resolves a mutable name to a root key.
func (s *LocalStore) GetRef(ref string) (string, error) {
	data, err := afero.ReadFile(s.fsys, s.refPath(ref))
	if err != nil {
		if isNotExist(err) {
			return "", fmt.Errorf("%w: ref %s:%s", ErrNotFound, s.namespace, ref)
		}
		return "", fmt.Errorf("read ref %s: %w", ref, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// PutRef stores a mutable name for a root key.
func (s *LocalStore) PutRef(ref, key string) error {
	path := s.refPath(ref)
	if err := s.fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create ref directory: %w", err)
	}
	if err := afero.WriteFile(s.fsys, path, []byte(key+"\n"), 0644); err != nil {
		return fmt.Errorf("write ref %s: %w", ref, err)
	}
	return nil
}

// objectPath shards objects git-style: objects/AB/CDEF...
func (s *LocalStore) objectPath(key string) string {
	if len(key) < 2 {
		return filepath.Join(s.basePath, "objects", key)
	}
	return filepath.Join(s.basePath, "objects", key[:2], key[2:])
}

func (s *LocalStore) refPath(ref string) string {
	return filepath.Join(s.basePath, "refs", ref)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}
