package community

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/AnshRaj112/mooddrop-backend/internal/kvstore"
)

// Class separates cooldowns that are tracked independently.
type Class string

const (
	ClassPost  Class = "post"
	ClassReply Class = "reply"
)

const (
	DefaultPostCooldown  = 5 * time.Second
	DefaultReplyCooldown = 3 * time.Second

	LastPostKey  = "mooddrop:last_post_at"
	LastReplyKey = "mooddrop:last_reply_at"
)

// CanPost reports whether at least cooldown has passed since lastPostAt. A
// zero lastPostAt means the device never posted.
func CanPost(now, lastPostAt time.Time, cooldown time.Duration) bool {
	return lastPostAt.IsZero() || now.Sub(lastPostAt) >= cooldown
}

// RemainingCooldown returns how long the device still has to wait, or 0.
func RemainingCooldown(now, lastPostAt time.Time, cooldown time.Duration) time.Duration {
	if CanPost(now, lastPostAt, cooldown) {
		return 0
	}
	return min(cooldown-now.Sub(lastPostAt), cooldown)
}

// CooldownError rejects a post made too early. It is an expected outcome;
// callers show Remaining to the user.
type CooldownError struct {
	Class     Class
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("community: %s cooldown active, retry in %s", e.Class, e.Remaining)
}

// Gate tracks the last successful post per class for one device.
type Gate struct {
	mu        sync.Mutex
	kv        *kvstore.Adapter
	now       func() time.Time
	cooldowns map[Class]time.Duration
	log       *slog.Logger
}

func NewGate(store kvstore.Store, logger *slog.Logger, now func() time.Time, post, reply time.Duration) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Gate{
		kv:  kvstore.NewAdapter(store, logger),
		now: now,
		cooldowns: map[Class]time.Duration{
			ClassPost:  post,
			ClassReply: reply,
		},
		log: logger,
	}
}

func classKey(class Class) string {
	if class == ClassReply {
		return LastReplyKey
	}
	return LastPostKey
}

// Cooldown returns the configured cooldown for class.
func (g *Gate) Cooldown(class Class) time.Duration { return g.cooldowns[class] }

// LastAt returns when class last succeeded, or the zero time.
func (g *Gate) LastAt(ctx context.Context, class Class) time.Time {
	raw, ok := g.kv.ReadRaw(ctx, classKey(class))
	if !ok {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		g.log.WarnContext(ctx, "community: corrupt cooldown timestamp ignored", "class", class, "error", err)
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Check reports the remaining wait for class. It never changes state.
func (g *Gate) Check(ctx context.Context, class Class) (time.Duration, bool) {
	remaining := RemainingCooldown(g.now(), g.LastAt(ctx, class), g.cooldowns[class])
	return remaining, remaining == 0
}

// Allow returns a *CooldownError when class is still cooling down.
func (g *Gate) Allow(ctx context.Context, class Class) error {
	if remaining, ok := g.Check(ctx, class); !ok {
		return &CooldownError{Class: class, Remaining: remaining}
	}
	return nil
}

// Record stores at as the last successful post for class. Call it only after
// the post went through.
func (g *Gate) Record(ctx context.Context, class Class, at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(ctx, class, at)
}

func (g *Gate) record(ctx context.Context, class Class, at time.Time) {
	g.kv.WriteString(ctx, classKey(class), strconv.FormatInt(at.UnixMilli(), 10))
}

// Reserve runs fn while class is held for this device and records the
// cooldown only when fn succeeds. While class is cooling down fn is not
// called and a *CooldownError is returned.
func (g *Gate) Reserve(ctx context.Context, class Class, fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if remaining := RemainingCooldown(now, g.LastAt(ctx, class), g.cooldowns[class]); remaining > 0 {
		return &CooldownError{Class: class, Remaining: remaining}
	}
	if err := fn(); err != nil {
		return err
	}
	g.record(ctx, class, now)
	return nil
}
