// Package kv is the synchronous key-value tier: string keys, string values,
// no transactions. It plays the part a browser's local storage plays for a
// web client, backed by a single JSON document on disk.
package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

var (
	// ErrUnavailable is returned when the store cannot be reached at all.
	// Callers treat it as "no persisted state" and fall back to defaults.
	ErrUnavailable = errors.New("kv: store unavailable")

	// ErrQuotaExceeded is returned by Set when the write would push the
	// document past the configured quota.
	ErrQuotaExceeded = errors.New("kv: quota exceeded")
)

// Store is a synchronous string-keyed persistence capability.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
	Keys() ([]string, error)
}

// FileStore keeps every pair in one JSON object file. Each call re-reads the
// file so independent instances on the same path see each other's writes.
type FileStore struct {
	fs    afero.Fs
	path  string
	quota int

	mu sync.Mutex
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithQuota caps the encoded document size in bytes. Zero means unlimited.
func WithQuota(bytes int) Option {
	return func(s *FileStore) { s.quota = bytes }
}

// NewFileStore returns a store backed by path on fs.
func NewFileStore(fs afero.Fs, path string, opts ...Option) *FileStore {
	s := &FileStore{fs: fs, path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenFile opens a store on the real filesystem.
func OpenFile(path string, opts ...Option) *FileStore {
	return NewFileStore(afero.NewOsFs(), path, opts...)
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the value stored under key.
func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := doc[key]
	return v, ok, nil
}

// Set stores value under key, replacing any previous value.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc[key] = value
	return s.save(doc)
}

// Remove deletes key. Removing a missing key is not an error.
func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	return s.save(doc)
}

// Keys returns all keys in sorted order.
func (s *FileStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	doc := map[string]string{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *FileStore) save(doc map[string]string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	if s.quota > 0 && len(data) > s.quota {
		return fmt.Errorf("%w: %d > %d bytes", ErrQuotaExceeded, len(data), s.quota)
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	// Write to a sibling file and rename so readers never see a torn document.
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Unavailable is a Store that cannot be reached.
type Unavailable struct{}

func (Unavailable) Get(string) (string, bool, error) { return "", false, ErrUnavailable }
func (Unavailable) Set(string, string) error         { return ErrUnavailable }
func (Unavailable) Remove(string) error              { return ErrUnavailable }
func (Unavailable) Keys() ([]string, error)          { return nil, ErrUnavailable }

// KeysWithPrefix returns the keys of s that start with prefix.
func KeysWithPrefix(s Store, prefix string) ([]string, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}
