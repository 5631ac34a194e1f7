package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AnshRaj112/mooddrop-backend/internal/codec"
	"github.com/AnshRaj112/mooddrop-backend/internal/layout"
	"github.com/AnshRaj112/mooddrop-backend/internal/messages"
	"github.com/AnshRaj112/mooddrop-backend/internal/models"
	"github.com/AnshRaj112/mooddrop-backend/internal/undo"
	"github.com/AnshRaj112/mooddrop-backend/internal/vault"
)

// Toast messages shown after a reversible action.
const (
	ToastTucked   = "Tucked away"
	ToastUntucked = "Returned to the pond"
	ToastReleased = "Echo released"
)

// VaultView is what the vault page renders.
type VaultView struct {
	Pond    []models.EchoItem `json:"pond"`
	Archive []models.EchoItem `json:"archive"`
	Toast   *undo.Toast       `json:"toast,omitempty"`
}

// VaultSession drives one device's vault: saves, reversible actions with an
// undo toast, and the pond layout.
type VaultSession struct {
	vault  *vault.Manager
	undo   *undo.Controller
	shared *messages.Client
	seed   string
	log    *slog.Logger

	mu        sync.Mutex
	positions map[string]layout.Position
}

func NewVaultSession(v *vault.Manager, u *undo.Controller, shared *messages.Client, seed string, logger *slog.Logger) *VaultSession {
	if logger == nil {
		logger = slog.Default()
	}
	return &VaultSession{vault: v, undo: u, shared: shared, seed: seed, log: logger}
}

// Load returns both views plus any pending toast. Reading the views purges
// expired deletions first.
func (s *VaultSession) Load(ctx context.Context) VaultView {
	view := VaultView{Pond: s.vault.Pond(ctx), Archive: s.vault.Archive(ctx)}
	if toast, ok := s.undo.Pending(); ok {
		view.Toast = &toast
	}
	return view
}

func (s *VaultSession) Toast() (undo.Toast, bool) { return s.undo.Pending() }

// ReleaseText saves a text echo. With share set the echo is also sent to the
// messages API in the background.
func (s *VaultSession) ReleaseText(ctx context.Context, mood, content string, share bool) (models.EchoItem, error) {
	item, err := s.vault.SaveText(ctx, mood, content)
	if err != nil {
		return item, err
	}
	if share {
		s.shared.SubmitAsync(messages.Message{Emotion: item.Mood, Content: item.Content})
	}
	return item, nil
}

// ReleaseVoice saves a voice echo once the recording is fully encoded.
func (s *VaultSession) ReleaseVoice(ctx context.Context, in vault.VoiceInput, share bool) (models.EchoItem, error) {
	item, err := s.vault.SaveVoice(ctx, in)
	if err != nil {
		return item, err
	}
	if share && item.Audio != nil {
		blob := codec.Decode(item.Audio.Data, item.Audio.MimeType)
		s.shared.SubmitAsync(messages.Message{
			Emotion:         item.Mood,
			Content:         item.Content,
			Audio:           blob.Data,
			AudioMime:       blob.MimeType,
			AudioDurationMs: item.Audio.DurationMs,
		})
	}
	return item, nil
}

// live returns the echo unless it is missing or soft-deleted.
func (s *VaultSession) live(ctx context.Context, id string) (models.EchoItem, bool) {
	it, ok := s.vault.Get(ctx, id)
	if !ok || it.IsDeleted() {
		return models.EchoItem{}, false
	}
	return it, true
}

// Edit changes mood and/or content. It reports false for an unknown or
// deleted id.
func (s *VaultSession) Edit(ctx context.Context, id string, mood, content *string) bool {
	if _, ok := s.live(ctx, id); !ok {
		return false
	}
	return s.vault.Patch(ctx, id, vault.Patch{Mood: mood, Content: content})
}

// detach keeps callbacks working after the request that scheduled them ends.
func detach(ctx context.Context) context.Context { return context.WithoutCancel(ctx) }

func tuckedAt(t *time.Time) vault.TimeField {
	if t == nil {
		return vault.ClearTime()
	}
	return vault.SetTime(*t)
}

// Tuck archives an echo and offers an undo.
func (s *VaultSession) Tuck(ctx context.Context, id string) bool {
	return s.moveTuck(ctx, id, ToastTucked, s.vault.Tuck)
}

// Untuck returns an echo to the pond and offers an undo.
func (s *VaultSession) Untuck(ctx context.Context, id string) bool {
	return s.moveTuck(ctx, id, ToastUntucked, s.vault.Untuck)
}

// moveTuck applies move and schedules an undo that puts tuckedAt back to
// what it was before.
func (s *VaultSession) moveTuck(ctx context.Context, id, toast string, move func(context.Context, string) bool) bool {
	prev, ok := s.live(ctx, id)
	if !ok || !move(ctx, id) {
		return false
	}
	bg := detach(ctx)
	restore := vault.Patch{TuckedAt: tuckedAt(prev.TuckedAt)}
	s.undo.Schedule(toast, func() { s.vault.Patch(bg, id, restore) }, nil, s.vault.GracePeriod())
	return true
}

// Delete soft-deletes an echo. Undo restores its previous tuck state; once
// the grace period passes the echo is finalized.
func (s *VaultSession) Delete(ctx context.Context, id string) bool {
	prev, ok := s.live(ctx, id)
	if !ok || !s.vault.SoftDelete(ctx, id) {
		return false
	}
	bg := detach(ctx)
	s.undo.Schedule(ToastReleased,
		func() { s.vault.Restore(bg, id, prev.TuckedAt) },
		func() { s.vault.Finalize(bg, id) },
		s.vault.GracePeriod(),
	)
	return true
}

// Undo reverses the pending action, if any.
func (s *VaultSession) Undo() bool { return s.undo.Undo() }

// ClearAll drops the pending action and removes every echo.
func (s *VaultSession) ClearAll(ctx context.Context) {
	s.undo.Cancel()
	s.vault.ClearAll(ctx)
	s.mu.Lock()
	s.positions = nil
	s.mu.Unlock()
}

// Close finalizes any pending action. Used when the session is evicted.
func (s *VaultSession) Close() { s.undo.Flush() }

// Layout places the pond echoes. Echoes keep their position across calls
// while they stay in the pond.
func (s *VaultSession) Layout(ctx context.Context, minDistance float64) map[string]layout.Position {
	pond := s.vault.Pond(ctx)
	ids := make([]string, len(pond))
	for i, it := range pond {
		ids[i] = it.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = layout.Extend(s.positions, ids, s.seed, minDistance)
	return s.positions
}
