package services

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/mooddrop-backend/internal/kvstore"
	"github.com/AnshRaj112/mooddrop-backend/internal/messages"
	"github.com/AnshRaj112/mooddrop-backend/internal/undo"
	"github.com/AnshRaj112/mooddrop-backend/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type manualTimer struct {
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualScheduler fires timers only when told to.
type manualScheduler struct{ timers []*manualTimer }

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) undo.Timer {
	t := &manualTimer{f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) FireAll() {
	for _, t := range s.timers {
		if !t.stopped {
			t.stopped = true
			t.f()
		}
	}
}

type fixture struct {
	devices *Devices
	store   *kvstore.MemoryStore
	clock   *fakeClock
	sched   *manualScheduler
}

func newFixture(t *testing.T, shared *messages.Client) *fixture {
	t.Helper()
	fx := &fixture{
		store: kvstore.NewMemoryStore(),
		clock: &fakeClock{t: time.Date(2026, 5, 4, 20, 0, 0, 0, time.UTC)},
		sched: &manualScheduler{},
	}
	fx.devices = NewDevices(fx.store, DevicesConfig{
		GracePeriod: 5 * time.Second,
		Messages:    shared,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:         fx.clock.Now,
		Scheduler:   fx.sched,
	})
	return fx
}

func TestVaultSession_DeleteThenUndoRestoresTuckState(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	s := fx.devices.Get("dev-1").Vault

	item, err := s.ReleaseText(ctx, "Tired", "long day", false)
	require.NoError(t, err)
	require.True(t, s.Tuck(ctx, item.ID))
	require.True(t, s.Delete(ctx, item.ID))

	view := s.Load(ctx)
	assert.Empty(t, view.Pond)
	assert.Empty(t, view.Archive)
	require.NotNil(t, view.Toast)
	assert.Equal(t, ToastReleased, view.Toast.Message)
	assert.Equal(t, undo.ActionUndo, view.Toast.Action)

	require.True(t, s.Undo())
	view = s.Load(ctx)
	assert.Nil(t, view.Toast)
	require.Len(t, view.Archive, 1)
	assert.Equal(t, item.ID, view.Archive[0].ID)
}

func TestVaultSession_DeleteFinalizesOnExpiry(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	s := fx.devices.Get("dev-1").Vault

	item, err := s.ReleaseText(ctx, "", "let it go", false)
	require.NoError(t, err)
	require.True(t, s.Delete(ctx, item.ID))
	assert.False(t, s.Delete(ctx, item.ID), "already released")

	fx.sched.FireAll()
	_, ok := s.Toast()
	assert.False(t, ok)
	assert.False(t, s.Undo())

	raw, err := fx.store.Get(ctx, DeviceKeyPrefix("dev-1")+vault.StorageKey)
	require.NoError(t, err)
	assert.NotContains(t, raw, item.ID)
}

func TestVaultSession_SecondDeleteReplacesToast(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	s := fx.devices.Get("dev-1").Vault

	a, _ := s.ReleaseText(ctx, "", "a", false)
	b, _ := s.ReleaseText(ctx, "", "b", false)
	require.True(t, s.Delete(ctx, a.ID))
	require.True(t, s.Delete(ctx, b.ID))

	// undo only reaches the latest action
	require.True(t, s.Undo())
	view := s.Load(ctx)
	require.Len(t, view.Pond, 1)
	assert.Equal(t, b.ID, view.Pond[0].ID)

	// the abandoned delete is purged once its grace period has passed
	fx.clock.Advance(5 * time.Second)
	view = s.Load(ctx)
	require.Len(t, view.Pond, 1)
	all := fx.devices.Get("dev-1").Vault.vault.All(ctx)
	assert.Len(t, all, 1)
}

func TestVaultSession_TuckAndUntuckOfferUndo(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	s := fx.devices.Get("dev-1").Vault

	item, _ := s.ReleaseText(ctx, "", "hi", false)
	require.True(t, s.Tuck(ctx, item.ID))
	toast, ok := s.Toast()
	require.True(t, ok)
	assert.Equal(t, ToastTucked, toast.Message)
	assert.Equal(t, fx.clock.Now().Add(5*time.Second), toast.ExpiresAt)

	require.True(t, s.Undo())
	assert.Len(t, s.Load(ctx).Pond, 1)

	require.True(t, s.Tuck(ctx, item.ID))
	tucked := *s.Load(ctx).Archive[0].TuckedAt
	fx.clock.Advance(time.Minute)
	require.True(t, s.Untuck(ctx, item.ID))
	toast, _ = s.Toast()
	assert.Equal(t, ToastUntucked, toast.Message)
	require.True(t, s.Undo())
	archive := s.Load(ctx).Archive
	require.Len(t, archive, 1)
	assert.Equal(t, tucked, *archive[0].TuckedAt)

	assert.False(t, s.Tuck(ctx, "missing"))
}

func TestVaultSession_UndoOfRetuckKeepsItArchived(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	s := fx.devices.Get("dev-1").Vault

	item, _ := s.ReleaseText(ctx, "", "hi", false)
	require.True(t, s.Tuck(ctx, item.ID))
	fx.sched.FireAll()
	tucked := *s.Load(ctx).Archive[0].TuckedAt

	fx.clock.Advance(time.Minute)
	require.True(t, s.Tuck(ctx, item.ID))
	require.True(t, s.Undo())

	view := s.Load(ctx)
	assert.Empty(t, view.Pond)
	require.Len(t, view.Archive, 1)
	assert.Equal(t, tucked, *view.Archive[0].TuckedAt)
}

func TestVaultSession_DeletedEchoIsMissing(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	s := fx.devices.Get("dev-1").Vault

	item, _ := s.ReleaseText(ctx, "Sad", "rain", false)
	require.True(t, s.Delete(ctx, item.ID))

	mood := "Calm"
	assert.False(t, s.Tuck(ctx, item.ID))
	assert.False(t, s.Untuck(ctx, item.ID))
	assert.False(t, s.Edit(ctx, item.ID, &mood, nil))

	toast, ok := s.Toast()
	require.True(t, ok)
	assert.Equal(t, ToastReleased, toast.Message)

	require.True(t, s.Undo())
	pond := s.Load(ctx).Pond
	require.Len(t, pond, 1)
	assert.Equal(t, "Sad", pond[0].Mood)
}

func TestVaultSession_Edit(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	s := fx.devices.Get("dev-1").Vault

	item, _ := s.ReleaseText(ctx, "Sad", "rain", false)
	mood := "Calm"
	require.True(t, s.Edit(ctx, item.ID, &mood, nil))
	assert.False(t, s.Edit(ctx, "missing", &mood, nil))

	got := s.Load(ctx).Pond[0]
	assert.Equal(t, "Calm", got.Mood)
	assert.Equal(t, "rain", got.Content)
}

func TestVaultSession_ClearAllCancelsPending(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	s := fx.devices.Get("dev-1").Vault

	item, _ := s.ReleaseText(ctx, "", "x", false)
	s.Delete(ctx, item.ID)
	s.ClearAll(ctx)

	view := s.Load(ctx)
	assert.Nil(t, view.Toast)
	assert.Empty(t, view.Pond)
	fx.sched.FireAll()
	assert.Empty(t, s.Load(ctx).Pond)
}

func TestVaultSession_LayoutIsStable(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	s := fx.devices.Get("dev-1").Vault

	a, _ := s.ReleaseText(ctx, "", "a", false)
	first := s.Layout(ctx, 10)
	require.Contains(t, first, a.ID)

	b, _ := s.ReleaseText(ctx, "", "b", false)
	second := s.Layout(ctx, 10)
	assert.Equal(t, first[a.ID], second[a.ID])
	assert.Contains(t, second, b.ID)

	s.Tuck(ctx, a.ID)
	assert.NotContains(t, s.Layout(ctx, 10), a.ID)
}

func TestVaultSession_ShareForwardsToMessagesAPI(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		got <- r.FormValue("emotion") + "|" + r.FormValue("content")
		_, _ = w.Write([]byte(`{"id":"m1"}`))
	}))
	defer srv.Close()

	fx := newFixture(t, messages.NewClient(srv.URL, nil))
	_, err := fx.devices.Get("dev-1").Vault.ReleaseText(context.Background(), "Hopeful", "sun", true)
	require.NoError(t, err)

	select {
	case v := <-got:
		assert.Equal(t, "Hopeful|sun", v)
	case <-time.After(5 * time.Second):
		t.Fatal("shared echo was not submitted")
	}
}

func TestDevices_IsolatedNamespaces(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	a := fx.devices.Get("a")
	assert.Same(t, a, fx.devices.Get("a"))
	b := fx.devices.Get("b")

	_, err := a.Vault.ReleaseText(ctx, "", "only a", false)
	require.NoError(t, err)
	assert.Len(t, a.Vault.Load(ctx).Pond, 1)
	assert.Empty(t, b.Vault.Load(ctx).Pond)

	_, err = a.Notes.Add(ctx, "note")
	require.NoError(t, err)
	assert.Empty(t, b.Notes.List(ctx))
	assert.NotEmpty(t, a.Member.Identity.Get(ctx))
}

func TestDevices_EvictFinalizesPendingDelete(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	dev := fx.devices.Get("a")
	item, _ := dev.Vault.ReleaseText(ctx, "", "bye", false)
	require.True(t, dev.Vault.Delete(ctx, item.ID))

	fx.clock.Advance(time.Minute)
	assert.Zero(t, fx.devices.Evict(time.Hour))
	assert.Equal(t, 1, fx.devices.Evict(30*time.Second))
	assert.Zero(t, fx.devices.Len())

	raw, err := fx.store.Get(ctx, DeviceKeyPrefix("a")+vault.StorageKey)
	require.NoError(t, err)
	assert.NotContains(t, raw, item.ID)
}
