// Package vault implements the Echo Vault: the per-device list of released
// echoes and their lifecycle (active, tucked, soft-deleted, purged).
//
// The whole collection is stored as one JSON document. Every mutation is a
// read-modify-write of that document; a Manager serialises its own mutations
// but does not coordinate with other processes writing the same key.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/mooddrop-backend/internal/codec"
	"github.com/AnshRaj112/mooddrop-backend/internal/kvstore"
	"github.com/AnshRaj112/mooddrop-backend/internal/models"
	"github.com/google/uuid"
)

const (
	// StorageKey holds the vault document.
	StorageKey = "mooddrop:echo_vault"
	// DefaultGracePeriod is how long a soft-deleted echo can be restored.
	DefaultGracePeriod = 5 * time.Second
)

var ErrEmptyContent = errors.New("vault: text echo needs content")

// Manager owns one vault document.
type Manager struct {
	mu    sync.Mutex
	kv    *kvstore.Adapter
	key   string
	now   func() time.Time
	newID func() string
	grace time.Duration
	log   *slog.Logger
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func WithIDGenerator(gen func() string) Option { return func(m *Manager) { m.newID = gen } }

func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.log = l } }

// WithGracePeriod sets the window used by the read paths to purge expired
// soft deletes.
func WithGracePeriod(d time.Duration) Option { return func(m *Manager) { m.grace = d } }

func NewManager(store kvstore.Store, opts ...Option) *Manager {
	m := &Manager{
		key:   StorageKey,
		now:   time.Now,
		newID: uuid.NewString,
		grace: DefaultGracePeriod,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("component", "vault")
	m.kv = kvstore.NewAdapter(store, m.log)
	return m
}

// GracePeriod returns the configured undo window.
func (m *Manager) GracePeriod() time.Duration { return m.grace }

func (m *Manager) stamp() time.Time { return m.now().UTC() }

// load reads and migrates the stored document. Callers hold m.mu.
func (m *Manager) load(ctx context.Context) []models.EchoItem {
	raw, ok := m.kv.ReadRaw(ctx, m.key)
	if !ok {
		return []models.EchoItem{}
	}
	items, migrated, err := decode(raw)
	if err != nil {
		m.log.WarnContext(ctx, "vault: stored data unreadable, starting empty", "error", err)
		return []models.EchoItem{}
	}
	items, dropped := sanitize(items)
	if dropped > 0 {
		m.log.WarnContext(ctx, "vault: dropped invalid records", "count", dropped)
	}
	if migrated || dropped > 0 {
		m.save(ctx, items)
	}
	return items
}

// save persists items. A failed write is logged by the adapter and the
// in-memory result is still returned to the caller.
func (m *Manager) save(ctx context.Context, items []models.EchoItem) {
	m.kv.WriteJSON(ctx, m.key, document{Version: SchemaVersion, Items: items})
}

func (m *Manager) insert(ctx context.Context, item models.EchoItem) models.EchoItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.load(ctx)
	items = append([]models.EchoItem{item}, items...)
	m.save(ctx, items)
	return item
}

// SaveText stores a new text echo at the head of the list.
func (m *Manager) SaveText(ctx context.Context, mood, content string) (models.EchoItem, error) {
	if strings.TrimSpace(content) == "" {
		return models.EchoItem{}, ErrEmptyContent
	}
	item := models.EchoItem{
		ID:        m.newID(),
		Type:      models.EchoTypeText,
		Mood:      strings.TrimSpace(mood),
		Content:   content,
		CreatedAt: m.stamp(),
	}
	return m.insert(ctx, item), nil
}

// VoiceInput is a recording to release as a voice echo.
type VoiceInput struct {
	Mood     string
	Content  string
	Audio    io.Reader
	MimeType string
	Duration time.Duration
}

// SaveVoice encodes the recording and stores a new voice echo. Nothing is
// written unless encoding succeeds.
func (m *Manager) SaveVoice(ctx context.Context, in VoiceInput) (models.EchoItem, error) {
	data, err := codec.Encode(ctx, in.Audio)
	if err != nil {
		return models.EchoItem{}, fmt.Errorf("save voice echo: %w", err)
	}
	mime := in.MimeType
	if mime == "" {
		mime = codec.DefaultMimeType
	}
	item := models.EchoItem{
		ID:      m.newID(),
		Type:    models.EchoTypeVoice,
		Mood:    strings.TrimSpace(in.Mood),
		Content: in.Content,
		Audio: &models.AudioPayload{
			Data:       data,
			MimeType:   mime,
			DurationMs: in.Duration.Milliseconds(),
		},
		CreatedAt: m.stamp(),
	}
	return m.insert(ctx, item), nil
}

// TimeField is an optional timestamp update inside a Patch.
type TimeField struct {
	Set   bool
	Value *time.Time
}

// SetTime returns a TimeField that stores t.
func SetTime(t time.Time) TimeField { return TimeField{Set: true, Value: &t} }

// ClearTime returns a TimeField that clears the timestamp.
func ClearTime() TimeField { return TimeField{Set: true} }

// Patch lists the fields to merge into an echo. Zero fields are left alone.
type Patch struct {
	Mood      *string
	Content   *string
	TuckedAt  TimeField
	DeletedAt TimeField
}

func (p Patch) apply(it *models.EchoItem) {
	if p.Mood != nil {
		it.Mood = *p.Mood
	}
	if p.Content != nil {
		it.Content = *p.Content
	}
	if p.TuckedAt.Set {
		it.TuckedAt = cloneTime(p.TuckedAt.Value)
	}
	if p.DeletedAt.Set {
		it.DeletedAt = cloneTime(p.DeletedAt.Value)
	}
}

// Patch merges p into the echo with the given id. It reports whether the id
// was found; a missing id is a silent no-op.
func (m *Manager) Patch(ctx context.Context, id string, p Patch) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.load(ctx)
	idx := slices.IndexFunc(items, func(it models.EchoItem) bool { return it.ID == id })
	if idx == -1 {
		m.log.DebugContext(ctx, "vault: patch on unknown echo ignored", "id", id)
		return false
	}
	p.apply(&items[idx])
	m.save(ctx, items)
	return true
}

// Tuck moves an echo out of the pond into the archive. Tucking twice only
// refreshes the timestamp.
func (m *Manager) Tuck(ctx context.Context, id string) bool {
	return m.Patch(ctx, id, Patch{TuckedAt: SetTime(m.stamp())})
}

// Untuck returns an echo to the pond.
func (m *Manager) Untuck(ctx context.Context, id string) bool {
	return m.Patch(ctx, id, Patch{TuckedAt: ClearTime()})
}

// SoftDelete hides an echo from every view until it is restored or purged.
func (m *Manager) SoftDelete(ctx context.Context, id string) bool {
	return m.Patch(ctx, id, Patch{DeletedAt: SetTime(m.stamp())})
}

// Restore reverses a soft delete and puts back the tuck state captured before
// the delete.
func (m *Manager) Restore(ctx context.Context, id string, prevTuckedAt *time.Time) bool {
	tucked := ClearTime()
	if prevTuckedAt != nil {
		tucked = SetTime(*prevTuckedAt)
	}
	return m.Patch(ctx, id, Patch{TuckedAt: tucked, DeletedAt: ClearTime()})
}

// Finalize removes an echo for good, whatever its state. It reports whether
// anything was removed.
func (m *Manager) Finalize(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.load(ctx)
	kept := filter(items, func(it models.EchoItem) bool { return it.ID != id })
	if len(kept) == len(items) {
		m.log.DebugContext(ctx, "vault: finalize on unknown echo ignored", "id", id)
		return false
	}
	m.save(ctx, kept)
	return true
}

// PurgeExpired hard-removes every echo soft-deleted more than grace ago and
// returns how many were removed. It is idempotent.
func (m *Manager) PurgeExpired(ctx context.Context, grace time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purgeLocked(ctx, grace)
}

func (m *Manager) purgeLocked(ctx context.Context, grace time.Duration) int {
	items := m.load(ctx)
	cutoff := m.stamp().Add(-grace)
	kept := filter(items, func(it models.EchoItem) bool {
		return it.DeletedAt == nil || it.DeletedAt.After(cutoff)
	})
	removed := len(items) - len(kept)
	if removed > 0 {
		m.save(ctx, kept)
		m.log.InfoContext(ctx, "vault: purged expired echoes", "count", removed)
	}
	return removed
}

// ClearAll empties the vault.
func (m *Manager) ClearAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv.Remove(ctx, m.key)
}

// Get returns the echo with the given id, including soft-deleted ones.
func (m *Manager) Get(ctx context.Context, id string) (models.EchoItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.load(ctx) {
		if it.ID == id {
			return it, true
		}
	}
	return models.EchoItem{}, false
}

// view purges expired deletes, then returns the items matching keep,
// newest first.
func (m *Manager) view(ctx context.Context, keep func(models.EchoItem) bool) []models.EchoItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked(ctx, m.grace)
	out := filter(m.load(ctx), keep)
	slices.SortStableFunc(out, func(a, b models.EchoItem) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// All returns every live (not soft-deleted) echo, newest first.
func (m *Manager) All(ctx context.Context) []models.EchoItem {
	return m.view(ctx, func(it models.EchoItem) bool { return !it.IsDeleted() })
}

// Pond returns the active echoes, newest first.
func (m *Manager) Pond(ctx context.Context) []models.EchoItem {
	return m.view(ctx, models.EchoItem.IsActive)
}

// Archive returns the tucked echoes, newest first.
func (m *Manager) Archive(ctx context.Context) []models.EchoItem {
	return m.view(ctx, models.EchoItem.IsTucked)
}

func filter(items []models.EchoItem, keep func(models.EchoItem) bool) []models.EchoItem {
	out := make([]models.EchoItem, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
