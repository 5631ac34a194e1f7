package community

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/mooddrop-backend/internal/kvstore"
	"github.com/AnshRaj112/mooddrop-backend/internal/models"
	"github.com/AnshRaj112/mooddrop-backend/internal/moderation"
	"github.com/google/uuid"
)

const (
	// DropsKey holds the shared list of drops.
	DropsKey = "mooddrop:drops"

	MaxDropLength  = 500
	MaxReplyLength = 280
	// MaxDrops caps the stored feed; the oldest drops fall off.
	MaxDrops = 200
)

var (
	ErrEmptyText       = errors.New("community: text is empty")
	ErrTextTooLong     = errors.New("community: text is too long")
	ErrDropNotFound    = errors.New("community: drop not found")
	ErrUnknownReaction = errors.New("community: unknown reaction")
)

// ContentError rejects text flagged by the moderation check.
type ContentError struct {
	Category moderation.Category
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("community: content flagged (%s)", e.Category)
}

// Member is the per-device side of posting: who is speaking and when they
// last spoke.
type Member struct {
	Identity *Identity
	Gate     *Gate
}

// Feed is the community list of drops shared by every device.
type Feed struct {
	mu      sync.Mutex
	drops   *kvstore.List[models.Drop]
	now     func() time.Time
	newID   func() string
	publish func(Event)
	log     *slog.Logger
}

type FeedOption func(*Feed)

func WithFeedClock(now func() time.Time) FeedOption { return func(f *Feed) { f.now = now } }

func WithFeedIDGenerator(gen func() string) FeedOption { return func(f *Feed) { f.newID = gen } }

func WithFeedLogger(l *slog.Logger) FeedOption { return func(f *Feed) { f.log = l } }

// WithPublisher receives every feed change after it is stored.
func WithPublisher(p func(Event)) FeedOption { return func(f *Feed) { f.publish = p } }

func NewFeed(shared kvstore.Store, opts ...FeedOption) *Feed {
	f := &Feed{
		now:     time.Now,
		newID:   uuid.NewString,
		publish: func(Event) {},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.drops = kvstore.NewList[models.Drop](kvstore.NewAdapter(shared, f.log), DropsKey)
	return f
}

func validText(text string, limit int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	if len([]rune(text)) > limit {
		return "", fmt.Errorf("%w: limit is %d characters", ErrTextTooLong, limit)
	}
	if res := moderation.Check(text); res.Flagged() {
		return "", &ContentError{Category: res.Category()}
	}
	return text, nil
}

// List returns the drops newest first.
func (f *Feed) List(ctx context.Context) []models.Drop {
	f.mu.Lock()
	drops := f.drops.Read(ctx)
	f.mu.Unlock()

	slices.SortStableFunc(drops, func(a, b models.Drop) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return drops
}

// Post adds a drop under the member's pseudonym. It returns a
// *CooldownError while the post cooldown runs and a *ContentError for
// flagged text. The cooldown is recorded only once the drop is stored, and
// concurrent posts from one member are serialised by its Gate.
func (f *Feed) Post(ctx context.Context, m Member, text, mood string) (models.Drop, error) {
	var drop models.Drop
	err := m.Gate.Reserve(ctx, ClassPost, func() error {
		clean, err := validText(text, MaxDropLength)
		if err != nil {
			return err
		}

		drop = models.Drop{
			ID:        f.newID(),
			Name:      m.Identity.Get(ctx),
			Text:      clean,
			Mood:      strings.TrimSpace(mood),
			Reactions: make(map[models.ReactionKind]int, len(models.ReactionKinds)),
			CreatedAt: f.now().UTC(),
		}
		for _, kind := range models.ReactionKinds {
			drop.Reactions[kind] = 0
		}

		f.mu.Lock()
		drops := append([]models.Drop{drop}, f.drops.Read(ctx)...)
		if len(drops) > MaxDrops {
			drops = drops[:MaxDrops]
		}
		f.drops.Write(ctx, drops)
		f.mu.Unlock()
		return nil
	})
	if err != nil {
		return models.Drop{}, err
	}

	f.publish(Event{Type: EventDropCreated, DropID: drop.ID, Drop: &drop, Timestamp: drop.CreatedAt})
	return drop, nil
}

// Reply attaches a reply to a drop. Replies have their own cooldown.
func (f *Feed) Reply(ctx context.Context, m Member, dropID, text string) (models.Reply, error) {
	var reply models.Reply
	err := m.Gate.Reserve(ctx, ClassReply, func() error {
		clean, err := validText(text, MaxReplyLength)
		if err != nil {
			return err
		}

		reply = models.Reply{
			ID:        f.newID(),
			Name:      m.Identity.Get(ctx),
			Text:      clean,
			CreatedAt: f.now().UTC(),
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		drops := f.drops.Read(ctx)
		i := slices.IndexFunc(drops, func(d models.Drop) bool { return d.ID == dropID })
		if i < 0 {
			return ErrDropNotFound
		}
		drops[i].Replies = append(drops[i].Replies, reply)
		f.drops.Write(ctx, drops)
		return nil
	})
	if err != nil {
		return models.Reply{}, err
	}

	f.publish(Event{Type: EventReplyCreated, DropID: dropID, Reply: &reply, Timestamp: reply.CreatedAt})
	return reply, nil
}

// React increments one reaction counter. Counters never decrease.
func (f *Feed) React(ctx context.Context, dropID string, kind models.ReactionKind) (models.Drop, error) {
	if !kind.Valid() {
		return models.Drop{}, fmt.Errorf("%w: %q", ErrUnknownReaction, kind)
	}

	f.mu.Lock()
	drops := f.drops.Read(ctx)
	i := slices.IndexFunc(drops, func(d models.Drop) bool { return d.ID == dropID })
	if i < 0 {
		f.mu.Unlock()
		return models.Drop{}, ErrDropNotFound
	}
	if drops[i].Reactions == nil {
		drops[i].Reactions = make(map[models.ReactionKind]int)
	}
	drops[i].Reactions[kind]++
	f.drops.Write(ctx, drops)
	drop := drops[i]
	f.mu.Unlock()

	f.publish(Event{Type: EventReactionAdded, DropID: dropID, Reaction: kind, Drop: &drop, Timestamp: f.now().UTC()})
	return drop, nil
}
