package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AnshRaj112/mooddrop-backend/internal/community"
	"github.com/AnshRaj112/mooddrop-backend/internal/kvstore"
	"github.com/AnshRaj112/mooddrop-backend/internal/messages"
	"github.com/AnshRaj112/mooddrop-backend/internal/notes"
	"github.com/AnshRaj112/mooddrop-backend/internal/undo"
	"github.com/AnshRaj112/mooddrop-backend/internal/vault"
)

const (
	deviceCleanupInterval = 5 * time.Minute
	deviceIdleTTL         = 30 * time.Minute
)

// DeviceKeyPrefix returns the namespace of a device inside the shared store.
func DeviceKeyPrefix(id string) string { return "device:" + id + ":" }

// Device bundles everything kept for one device.
type Device struct {
	ID     string
	Vault  *VaultSession
	Member community.Member
	Notes  *notes.Store

	lastUse time.Time
}

// DevicesConfig configures new device sessions.
type DevicesConfig struct {
	GracePeriod   time.Duration
	PostCooldown  time.Duration
	ReplyCooldown time.Duration
	Messages      *messages.Client
	Logger        *slog.Logger

	// Now and Scheduler are replaced in tests.
	Now       func() time.Time
	Scheduler undo.Scheduler
}

// Devices caches one Device per device id.
type Devices struct {
	store kvstore.Store
	cfg   DevicesConfig

	mu      sync.Mutex
	devices map[string]*Device
}

func NewDevices(store kvstore.Store, cfg DevicesConfig) *Devices {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = vault.DefaultGracePeriod
	}
	if cfg.PostCooldown <= 0 {
		cfg.PostCooldown = community.DefaultPostCooldown
	}
	if cfg.ReplyCooldown <= 0 {
		cfg.ReplyCooldown = community.DefaultReplyCooldown
	}
	return &Devices{store: store, cfg: cfg, devices: make(map[string]*Device)}
}

func (d *Devices) build(id string) *Device {
	ns := kvstore.Prefixed(d.store, DeviceKeyPrefix(id))
	logger := d.cfg.Logger.With("device", id)

	undoOpts := []undo.Option{undo.WithClock(d.cfg.Now), undo.WithLogger(logger)}
	if d.cfg.Scheduler != nil {
		undoOpts = append(undoOpts, undo.WithScheduler(d.cfg.Scheduler))
	}
	v := vault.NewManager(ns,
		vault.WithClock(d.cfg.Now),
		vault.WithLogger(logger),
		vault.WithGracePeriod(d.cfg.GracePeriod),
	)
	return &Device{
		ID:    id,
		Vault: NewVaultSession(v, undo.NewController(undoOpts...), d.cfg.Messages, id, logger),
		Member: community.Member{
			Identity: community.NewIdentity(ns, logger),
			Gate:     community.NewGate(ns, logger, d.cfg.Now, d.cfg.PostCooldown, d.cfg.ReplyCooldown),
		},
		Notes: notes.New(ns, logger, notes.WithClock(d.cfg.Now)),
	}
}

// Get returns the device for id, creating it on first use.
func (d *Devices) Get(id string) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()

	dev, ok := d.devices[id]
	if !ok {
		dev = d.build(id)
		d.devices[id] = dev
	}
	dev.lastUse = d.cfg.Now()
	return dev
}

// Len returns the number of cached devices.
func (d *Devices) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.devices)
}

// Evict drops devices idle for longer than ttl. Pending undo actions are
// finalized first so nothing soft-deleted outlives its session.
func (d *Devices) Evict(ttl time.Duration) int {
	now := d.cfg.Now()
	var idle []*Device

	d.mu.Lock()
	for id, dev := range d.devices {
		if now.Sub(dev.lastUse) > ttl {
			idle = append(idle, dev)
			delete(d.devices, id)
		}
	}
	d.mu.Unlock()

	for _, dev := range idle {
		dev.Vault.Close()
	}
	return len(idle)
}

// StartCleanup evicts idle devices until ctx is done.
func (d *Devices) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(deviceCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := d.Evict(deviceIdleTTL); n > 0 {
					d.cfg.Logger.Debug("services: idle devices evicted", "count", n)
				}
			}
		}
	}()
}

// Shutdown finalizes every pending action.
func (d *Devices) Shutdown() {
	d.mu.Lock()
	all := make([]*Device, 0, len(d.devices))
	for _, dev := range d.devices {
		all = append(all, dev)
	}
	d.mu.Unlock()

	for _, dev := range all {
		dev.Vault.Close()
	}
}
