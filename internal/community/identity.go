// Package community implements the anonymous side of MoodDrop: per-device
// pseudonyms, posting cooldowns, and the shared feed of drops.
package community

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/AnshRaj112/mooddrop-backend/internal/kvstore"
)

const (
	// IdentityKey holds the device pseudonym.
	IdentityKey = "mooddrop:calm_name"
	// LegacyIdentityKey is where older clients kept the pseudonym.
	LegacyIdentityKey = "mooddrop:anon_name"
)

var adjectives = []string{
	"Quiet", "Gentle", "Soft", "Calm", "Still", "Warm",
	"Misty", "Mellow", "Tender", "Hushed", "Drifting", "Patient",
}

var nouns = []string{
	"River", "Willow", "Ember", "Harbor", "Meadow", "Cloud",
	"Fern", "Moon", "Tide", "Sparrow", "Pebble", "Lantern",
}

// GeneratePseudonym composes adjective + noun + two-digit number, e.g.
// "QuietRiver42". intn must return a value in [0, n).
func GeneratePseudonym(intn func(n int) int) string {
	return fmt.Sprintf("%s%s%d", adjectives[intn(len(adjectives))], nouns[intn(len(nouns))], 10+intn(90))
}

// Identity is the pseudonym of one device.
type Identity struct {
	mu   sync.Mutex
	kv   *kvstore.Adapter
	intn func(n int) int
}

type IdentityOption func(*Identity)

// WithRand replaces the random source used to generate names.
func WithRand(intn func(n int) int) IdentityOption {
	return func(i *Identity) { i.intn = intn }
}

func NewIdentity(store kvstore.Store, logger *slog.Logger, opts ...IdentityOption) *Identity {
	i := &Identity{kv: kvstore.NewAdapter(store, logger), intn: rand.IntN}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Identity) read(ctx context.Context, key string) (string, bool) {
	raw, ok := i.kv.ReadRaw(ctx, key)
	if !ok {
		return "", false
	}
	name := strings.TrimSpace(string(raw))
	return name, name != ""
}

// Get returns the device pseudonym, creating and persisting one on first
// use. A name stored under the legacy key is moved to the current key.
func (i *Identity) Get(ctx context.Context) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	if name, ok := i.read(ctx, IdentityKey); ok {
		return name
	}
	if name, ok := i.read(ctx, LegacyIdentityKey); ok {
		if i.kv.WriteString(ctx, IdentityKey, name) {
			i.kv.Remove(ctx, LegacyIdentityKey)
		}
		return name
	}
	name := GeneratePseudonym(i.intn)
	i.kv.WriteString(ctx, IdentityKey, name)
	return name
}

// Refresh replaces the pseudonym. Drops already posted keep the old name.
func (i *Identity) Refresh(ctx context.Context) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	name := GeneratePseudonym(i.intn)
	i.kv.WriteString(ctx, IdentityKey, name)
	return name
}
