// Package persist keeps a piece of in-memory state in step with one key of a
// kv.Store. The store is injected; nothing here reaches for ambient storage.
//
// A State starts with its initial value and is not hydrated. Hydrate performs
// the single read from the store. Every Set or Update applies the new value in
// memory first and then writes it through; a failed write is logged and kept
// in Err, never returned, and never rolls the in-memory value back.
package persist

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/imkarma/streak/internal/kv"
)

// State is a value of type T mirrored to a single store key.
type State[T any] struct {
	store  kv.Store
	key    string
	codec  Codec[T]
	logger *slog.Logger

	mu       sync.Mutex
	value    T
	hydrated bool
	written  bool
	lastErr  error
}

// Option configures a State.
type Option[T any] func(*State[T])

// WithCodec overrides the default JSON codec.
func WithCodec[T any](c Codec[T]) Option[T] {
	return func(s *State[T]) { s.codec = c }
}

// WithLogger sets the logger used for write failures.
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(s *State[T]) { s.logger = l }
}

// New returns an un-hydrated State holding initial.
func New[T any](store kv.Store, key string, initial T, opts ...Option[T]) *State[T] {
	s := &State[T]{
		store:  store,
		key:    key,
		codec:  JSONCodec[T]{},
		logger: slog.Default(),
		value:  initial,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Value returns the current in-memory value.
func (s *State[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Hydrated reports whether the initial read has completed.
func (s *State[T]) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// Err returns the most recent write failure, or nil after a successful write.
func (s *State[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Hydrate reads the stored value once. A missing key or an unavailable store
// keeps the initial value and returns nil. Malformed data keeps the initial
// value and returns a *DecodeError. Only the first call does any work, and
// none once a value has been set locally.
func (s *State[T]) Hydrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hydrated {
		return nil
	}
	defer func() { s.hydrated = true }()
	if s.written {
		return nil
	}

	raw, ok, err := s.store.Get(s.key)
	if err != nil {
		if errors.Is(err, kv.ErrUnavailable) {
			s.logger.Debug("store unavailable, using initial value", "key", s.key)
			return nil
		}
		s.logger.Warn("hydrate failed, using initial value", "key", s.key, "error", err)
		return fmt.Errorf("hydrate %q: %w", s.key, err)
	}
	if !ok {
		return nil
	}

	v, err := s.codec.Decode([]byte(raw))
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Key = s.key
		} else {
			de = &DecodeError{Key: s.key, Stage: "parse", Err: err}
		}
		s.logger.Warn("stored value rejected, using initial value", "key", s.key, "stage", de.Stage, "error", de.Err)
		return de
	}
	s.value = v
	return nil
}

// Set replaces the value and writes it through.
func (s *State[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update applies fn to the current value and writes the result through.
func (s *State[T]) Update(fn func(T) T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = fn(s.value)
	s.written = true
	s.lastErr = s.write(s.value)
}

func (s *State[T]) write(v T) error {
	data, err := s.codec.Encode(v)
	if err != nil {
		var ee *EncodeError
		if errors.As(err, &ee) {
			ee.Key = s.key
		} else {
			ee = &EncodeError{Key: s.key, Err: err}
		}
		s.logger.Error("encode failed, value kept in memory only", "key", s.key, "error", ee.Err)
		return ee
	}
	if err := s.store.Set(s.key, string(data)); err != nil {
		s.logger.Error("write failed, value kept in memory only", "key", s.key, "error", err)
		return fmt.Errorf("write %q: %w", s.key, err)
	}
	return nil
}
