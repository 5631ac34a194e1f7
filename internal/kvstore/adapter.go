package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
)

// Adapter wraps a Store with JSON handling that never fails the caller.
// Absent or unreadable values read as "nothing stored"; failed writes are
// logged and dropped, so in-memory state may run ahead of what is persisted.
type Adapter struct {
	store Store
	log   *slog.Logger
}

func NewAdapter(store Store, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{store: store, log: logger}
}

// Store returns the wrapped store.
func (a *Adapter) Store() Store { return a.store }

// ReadRaw returns the raw bytes under key. ok is false when nothing usable is
// stored or the store could not be read.
func (a *Adapter) ReadRaw(ctx context.Context, key string) ([]byte, bool) {
	val, err := a.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false
	}
	if err != nil {
		a.log.WarnContext(ctx, "kvstore: read failed", "key", key, "error", err)
		return nil, false
	}
	if val == "" {
		return nil, false
	}
	return []byte(val), true
}

// ReadJSON decodes the value under key into dest. It reports false when the
// key is absent or the payload is corrupt; corrupt payloads are logged.
func (a *Adapter) ReadJSON(ctx context.Context, key string, dest any) bool {
	raw, ok := a.ReadRaw(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		a.log.WarnContext(ctx, "kvstore: corrupt value ignored", "key", key, "error", err)
		return false
	}
	return true
}

// WriteJSON encodes v and stores it under key. It reports whether the write
// reached the store.
func (a *Adapter) WriteJSON(ctx context.Context, key string, v any) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		a.log.ErrorContext(ctx, "kvstore: encode failed, write dropped", "key", key, "error", err)
		return false
	}
	return a.WriteString(ctx, key, string(raw))
}

// WriteString stores a plain string under key.
func (a *Adapter) WriteString(ctx context.Context, key, value string) bool {
	if err := a.store.Set(ctx, key, value); err != nil {
		a.log.ErrorContext(ctx, "kvstore: write failed, change not persisted", "key", key, "error", err)
		return false
	}
	return true
}

// Remove deletes key, logging failures.
func (a *Adapter) Remove(ctx context.Context, key string) bool {
	if err := a.store.Delete(ctx, key); err != nil {
		a.log.ErrorContext(ctx, "kvstore: delete failed", "key", key, "error", err)
		return false
	}
	return true
}

// List is a JSON array of T persisted under one key.
type List[T any] struct {
	adapter *Adapter
	key     string
}

func NewList[T any](adapter *Adapter, key string) *List[T] {
	return &List[T]{adapter: adapter, key: key}
}

// Read returns the stored items. Absent or malformed data yields an empty
// slice, never nil.
func (l *List[T]) Read(ctx context.Context) []T {
	var items []T
	if !l.adapter.ReadJSON(ctx, l.key, &items) || items == nil {
		return []T{}
	}
	return items
}

// Write replaces the stored list.
func (l *List[T]) Write(ctx context.Context, items []T) bool {
	if items == nil {
		items = []T{}
	}
	return l.adapter.WriteJSON(ctx, l.key, items)
}

// Clear removes the list.
func (l *List[T]) Clear(ctx context.Context) bool {
	return l.adapter.Remove(ctx, l.key)
}
