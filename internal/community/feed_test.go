package community

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/mooddrop-backend/internal/kvstore"
	"github.com/AnshRaj112/mooddrop-backend/internal/models"
	"github.com/AnshRaj112/mooddrop-backend/internal/moderation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedFixture struct {
	feed   *Feed
	shared *kvstore.MemoryStore
	clock  *fakeClock
	events []Event
}

func newFeedFixture(t *testing.T) *feedFixture {
	t.Helper()
	fx := &feedFixture{shared: kvstore.NewMemoryStore(), clock: &fakeClock{}}
	fx.clock.Set(1_700_000_000_000)
	n := 0
	fx.feed = NewFeed(fx.shared,
		WithFeedClock(fx.clock.Now),
		WithFeedIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
		WithFeedLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPublisher(func(ev Event) { fx.events = append(fx.events, ev) }),
	)
	return fx
}

func (fx *feedFixture) member(device string, pick int) Member {
	store := kvstore.Prefixed(fx.shared, "device:"+device+":")
	return Member{
		Identity: NewIdentity(store, nil, WithRand(fixedRand(pick))),
		Gate:     NewGate(store, nil, fx.clock.Now, DefaultPostCooldown, DefaultReplyCooldown),
	}
}

func (fx *feedFixture) advance(d time.Duration) { fx.clock.t = fx.clock.t.Add(d) }

func TestFeed_PostStoresDropUnderPseudonym(t *testing.T) {
	fx := newFeedFixture(t)
	ctx := context.Background()
	m := fx.member("a", 0)

	drop, err := fx.feed.Post(ctx, m, "  feeling lighter today  ", "Hopeful")
	require.NoError(t, err)

	assert.Equal(t, "id-1", drop.ID)
	assert.Equal(t, "QuietRiver10", drop.Name)
	assert.Equal(t, "feeling lighter today", drop.Text)
	assert.Equal(t, "Hopeful", drop.Mood)
	assert.Equal(t, map[models.ReactionKind]int{"hug": 0, "relate": 0, "support": 0}, drop.Reactions)

	list := fx.feed.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, drop.ID, list[0].ID)

	require.Len(t, fx.events, 1)
	assert.Equal(t, EventDropCreated, fx.events[0].Type)
	assert.Equal(t, drop.ID, fx.events[0].Drop.ID)
}

func TestFeed_PostCooldown(t *testing.T) {
	fx := newFeedFixture(t)
	ctx := context.Background()
	m := fx.member("a", 0)

	_, err := fx.feed.Post(ctx, m, "first", "")
	require.NoError(t, err)

	fx.advance(4 * time.Second)
	_, err = fx.feed.Post(ctx, m, "second", "")
	var cd *CooldownError
	require.True(t, errors.As(err, &cd))
	assert.Equal(t, time.Second, cd.Remaining)
	assert.Len(t, fx.feed.List(ctx), 1)

	// the rejected attempt did not restart the cooldown
	fx.advance(time.Second)
	_, err = fx.feed.Post(ctx, m, "second", "")
	require.NoError(t, err)
	assert.Len(t, fx.feed.List(ctx), 2)
}

func TestFeed_CooldownIsPerDevice(t *testing.T) {
	fx := newFeedFixture(t)
	ctx := context.Background()

	_, err := fx.feed.Post(ctx, fx.member("a", 0), "from a", "")
	require.NoError(t, err)
	drop, err := fx.feed.Post(ctx, fx.member("b", 1), "from b", "")
	require.NoError(t, err)
	assert.Equal(t, "GentleWillow11", drop.Name)

	list := fx.feed.List(ctx)
	require.Len(t, list, 2)
}

func TestFeed_RejectedTextDoesNotStartCooldown(t *testing.T) {
	fx := newFeedFixture(t)
	ctx := context.Background()
	m := fx.member("a", 0)

	_, err := fx.feed.Post(ctx, m, "   ", "")
	assert.ErrorIs(t, err, ErrEmptyText)

	long := make([]rune, MaxDropLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = fx.feed.Post(ctx, m, string(long), "")
	assert.ErrorIs(t, err, ErrTextTooLong)

	_, err = fx.feed.Post(ctx, m, "I want to kill him", "")
	var ce *ContentError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, moderation.CategoryThreat, ce.Category)

	_, ok := m.Gate.Check(ctx, ClassPost)
	assert.True(t, ok)
	assert.Empty(t, fx.feed.List(ctx))
	assert.Empty(t, fx.events)
}

func TestFeed_ListNewestFirst(t *testing.T) {
	fx := newFeedFixture(t)
	ctx := context.Background()
	m := fx.member("a", 0)

	for i := range 3 {
		_, err := fx.feed.Post(ctx, m, fmt.Sprintf("drop %d", i), "")
		require.NoError(t, err)
		fx.advance(DefaultPostCooldown)
	}

	list := fx.feed.List(ctx)
	require.Len(t, list, 3)
	assert.Equal(t, "drop 2", list[0].Text)
	assert.Equal(t, "drop 0", list[2].Text)
}

func TestFeed_CapsStoredDrops(t *testing.T) {
	fx := newFeedFixture(t)
	ctx := context.Background()
	m := fx.member("a", 0)

	for i := range MaxDrops + 5 {
		_, err := fx.feed.Post(ctx, m, fmt.Sprintf("drop %d", i), "")
		require.NoError(t, err)
		fx.advance(DefaultPostCooldown)
	}

	list := fx.feed.List(ctx)
	assert.Len(t, list, MaxDrops)
	assert.Equal(t, fmt.Sprintf("drop %d", MaxDrops+4), list[0].Text)
}

func TestFeed_Reply(t *testing.T) {
	fx := newFeedFixture(t)
	ctx := context.Background()
	author := fx.member("a", 0)
	replier := fx.member("b", 1)

	drop, err := fx.feed.Post(ctx, author, "long week", "")
	require.NoError(t, err)

	reply, err := fx.feed.Reply(ctx, replier, drop.ID, "you've got this")
	require.NoError(t, err)
	assert.Equal(t, "GentleWillow11", reply.Name)

	// replier has not posted, so only the reply cooldown applies
	_, ok := replier.Gate.Check(ctx, ClassPost)
	assert.True(t, ok)

	fx.advance(2 * time.Second)
	_, err = fx.feed.Reply(ctx, replier, drop.ID, "again")
	var cd *CooldownError
	require.True(t, errors.As(err, &cd))
	assert.Equal(t, ClassReply, cd.Class)
	assert.Equal(t, time.Second, cd.Remaining)

	list := fx.feed.List(ctx)
	require.Len(t, list[0].Replies, 1)
	assert.Equal(t, reply.ID, list[0].Replies[0].ID)
	assert.Equal(t, EventReplyCreated, fx.events[len(fx.events)-1].Type)
}

func TestFeed_ReplyToMissingDrop(t *testing.T) {
	fx := newFeedFixture(t)
	m := fx.member("a", 0)

	_, err := fx.feed.Reply(context.Background(), m, "nope", "hello")
	assert.ErrorIs(t, err, ErrDropNotFound)
	_, ok := m.Gate.Check(context.Background(), ClassReply)
	assert.True(t, ok)
}

func TestFeed_React(t *testing.T) {
	fx := newFeedFixture(t)
	ctx := context.Background()

	drop, err := fx.feed.Post(ctx, fx.member("a", 0), "tired", "")
	require.NoError(t, err)

	_, err = fx.feed.React(ctx, drop.ID, models.ReactionHug)
	require.NoError(t, err)
	updated, err := fx.feed.React(ctx, drop.ID, models.ReactionHug)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Reactions[models.ReactionHug])
	assert.Equal(t, 0, updated.Reactions[models.ReactionRelate])

	_, err = fx.feed.React(ctx, drop.ID, "angry")
	assert.ErrorIs(t, err, ErrUnknownReaction)
	_, err = fx.feed.React(ctx, "missing", models.ReactionHug)
	assert.ErrorIs(t, err, ErrDropNotFound)

	assert.Equal(t, 2, fx.feed.List(ctx)[0].Reactions[models.ReactionHug])
	last := fx.events[len(fx.events)-1]
	assert.Equal(t, EventReactionAdded, last.Type)
	assert.Equal(t, models.ReactionHug, last.Reaction)
}

func TestFeed_CorruptListReadsEmpty(t *testing.T) {
	fx := newFeedFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.shared.Set(ctx, DropsKey, "{oops"))

	assert.Empty(t, fx.feed.List(ctx))
	_, err := fx.feed.Post(ctx, fx.member("a", 0), "still here", "")
	require.NoError(t, err)
	assert.Len(t, fx.feed.List(ctx), 1)
}

func TestFeed_ConcurrentPostsFromOneMember(t *testing.T) {
	fx := newFeedFixture(t)
	ctx := context.Background()
	m := fx.member("a", 0)

	const n = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		cooling  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := fx.feed.Post(ctx, m, fmt.Sprintf("drop %d", i), "")
			var cd *CooldownError
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.As(err, &cd):
				cooling++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, n-1, cooling)
	assert.Len(t, fx.feed.List(ctx), 1)
}
