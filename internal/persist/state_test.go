package persist

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/imkarma/streak/internal/kv"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settings struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"gte=0"`
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newStore() kv.Store {
	return kv.NewFileStore(afero.NewMemMapFs(), "/local.json")
}

// rejectingStore reads from an inner store but refuses every write.
type rejectingStore struct {
	kv.Store
}

func (rejectingStore) Set(string, string) error { return errors.New("disk full") }

func TestState_RoundTripAcrossInstances(t *testing.T) {
	store := newStore()

	first := New(store, "settings", settings{Name: "default"}, WithLogger[settings](quiet))
	require.NoError(t, first.Hydrate())
	first.Set(settings{Name: "custom", Count: 3})
	require.NoError(t, first.Err())

	second := New(store, "settings", settings{Name: "default"}, WithLogger[settings](quiet))
	require.NoError(t, second.Hydrate())
	assert.Equal(t, settings{Name: "custom", Count: 3}, second.Value())
}

func TestState_UpdaterFunction(t *testing.T) {
	store := newStore()
	s := New(store, "count", 1, WithLogger[int](quiet))
	require.NoError(t, s.Hydrate())

	s.Update(func(n int) int { return n + 41 })
	assert.Equal(t, 42, s.Value())

	raw, ok, err := store.Get("count")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42", raw)
}

func TestState_HydratedFlag(t *testing.T) {
	store := newStore()
	require.NoError(t, store.Set("count", "7"))

	s := New(store, "count", 0, WithLogger[int](quiet))
	assert.False(t, s.Hydrated())
	assert.Equal(t, 0, s.Value())

	require.NoError(t, s.Hydrate())
	assert.True(t, s.Hydrated())
	assert.Equal(t, 7, s.Value())

	// A second hydrate does not re-read.
	require.NoError(t, store.Set("count", "99"))
	require.NoError(t, s.Hydrate())
	assert.True(t, s.Hydrated())
	assert.Equal(t, 7, s.Value())
}

func TestState_MissingKeyUsesInitial(t *testing.T) {
	s := New(newStore(), "absent", []string{"seed"}, WithLogger[[]string](quiet))
	require.NoError(t, s.Hydrate())
	assert.Equal(t, []string{"seed"}, s.Value())
	assert.True(t, s.Hydrated())
}

func TestState_UnavailableStoreFallsBack(t *testing.T) {
	s := New[int](kv.Unavailable{}, "count", 5, WithLogger[int](quiet))
	require.NoError(t, s.Hydrate())
	assert.True(t, s.Hydrated())
	assert.Equal(t, 5, s.Value())

	// Writes fail quietly and the in-memory value still moves.
	s.Set(6)
	assert.Equal(t, 6, s.Value())
	assert.ErrorIs(t, s.Err(), kv.ErrUnavailable)
}

func TestState_WriteFailureKeepsMemoryValue(t *testing.T) {
	store := newStore()
	require.NoError(t, store.Set("settings", `{"name":"stored","count":1}`))

	s := New[settings](rejectingStore{store}, "settings", settings{}, WithLogger[settings](quiet))
	require.NoError(t, s.Hydrate())
	assert.Equal(t, "stored", s.Value().Name)

	s.Set(settings{Name: "attempted", Count: 2})
	assert.Equal(t, settings{Name: "attempted", Count: 2}, s.Value())
	require.Error(t, s.Err())

	// The store still holds the old value.
	raw, _, _ := store.Get("settings")
	assert.JSONEq(t, `{"name":"stored","count":1}`, raw)
}

func TestState_FailedWriteBeforeHydrateSurvivesHydrate(t *testing.T) {
	store := newStore()
	require.NoError(t, store.Set("count", "1"))

	s := New[int](rejectingStore{store}, "count", 0, WithLogger[int](quiet))
	s.Set(7)
	require.Error(t, s.Err())
	assert.False(t, s.Hydrated())

	require.NoError(t, s.Hydrate())
	assert.True(t, s.Hydrated())
	assert.Equal(t, 7, s.Value())
}

func TestState_ErrClearsAfterSuccessfulWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := kv.NewFileStore(fs, "/local.json", kv.WithQuota(40))
	s := New(store, "v", "", WithLogger[string](quiet))

	s.Set("this string is much too long for a forty byte document")
	assert.ErrorIs(t, s.Err(), kv.ErrQuotaExceeded)

	s.Set("ok")
	assert.NoError(t, s.Err())
}

func TestState_MalformedDataIsTypedError(t *testing.T) {
	store := newStore()
	require.NoError(t, store.Set("settings", "{broken"))

	s := New(store, "settings", settings{Name: "default"}, WithLogger[settings](quiet))
	err := s.Hydrate()

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "settings", de.Key)
	assert.Equal(t, "parse", de.Stage)
	assert.True(t, s.Hydrated())
	assert.Equal(t, "default", s.Value().Name)
}

func TestState_ValidationFailureIsTypedError(t *testing.T) {
	store := newStore()
	require.NoError(t, store.Set("settings", `{"name":"","count":-1}`))

	codec := JSONCodec[settings]{Validate: func(v settings) error { return ValidateStruct(v) }}
	s := New(store, "settings", settings{Name: "default"},
		WithCodec[settings](codec), WithLogger[settings](quiet))

	err := s.Hydrate()
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "validate", de.Stage)
	assert.Contains(t, de.Error(), "required")
	assert.Equal(t, "default", s.Value().Name)
}

func TestState_EncodeFailureLogged(t *testing.T) {
	store := newStore()
	s := New(store, "fn", map[string]any{}, WithLogger[map[string]any](quiet))

	s.Set(map[string]any{"bad": func() {}})

	var ee *EncodeError
	require.ErrorAs(t, s.Err(), &ee)
	assert.Equal(t, "fn", ee.Key)
	_, ok, _ := store.Get("fn")
	assert.False(t, ok)
}
