package kvstore

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestAdapter(t *testing.T) (*Adapter, *MemoryStore, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := NewMemoryStore()
	return NewAdapter(store, logger), store, &buf
}

func TestList_ReadAbsentIsEmpty(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	l := NewList[item](a, "items")

	got := l.Read(context.Background())
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestList_ReadCorruptIsEmptyAndLogged(t *testing.T) {
	a, store, buf := newTestAdapter(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "items", "{not json"))

	got := NewList[item](a, "items").Read(ctx)
	assert.Empty(t, got)
	assert.Contains(t, buf.String(), "corrupt value ignored")
}

func TestList_ReadWrongShapeIsEmpty(t *testing.T) {
	a, store, _ := newTestAdapter(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "items", `{"id":"x"}`))

	assert.Empty(t, NewList[item](a, "items").Read(ctx))
}

func TestList_WriteThenRead(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	ctx := context.Background()
	l := NewList[item](a, "items")

	require.True(t, l.Write(ctx, []item{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}))
	assert.Equal(t, []item{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}, l.Read(ctx))

	require.True(t, l.Clear(ctx))
	assert.Empty(t, l.Read(ctx))
}

func TestList_WriteFailureIsDroppedAndLogged(t *testing.T) {
	a, store, buf := newTestAdapter(t)
	ctx := context.Background()
	l := NewList[item](a, "items")
	require.True(t, l.Write(ctx, []item{{ID: "1"}}))

	store.FailWrites = errors.New("quota exceeded")
	assert.False(t, l.Write(ctx, []item{{ID: "2"}}))
	assert.Contains(t, buf.String(), "quota exceeded")

	store.FailWrites = nil
	assert.Equal(t, []item{{ID: "1"}}, l.Read(ctx))
}

func TestPrefixed_IsolatesNamespaces(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryStore()
	a := Prefixed(base, "device:a:")
	b := Prefixed(base, "device:b:")

	require.NoError(t, a.Set(ctx, "k", "1"))
	_, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := base.Get(ctx, "device:a:k")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	require.NoError(t, a.Delete(ctx, "k"))
	assert.Equal(t, 0, base.Keys())
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "store.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "b", "2"))
	require.NoError(t, s.Delete(ctx, "a"))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = reopened.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	v, err := reopened.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}
