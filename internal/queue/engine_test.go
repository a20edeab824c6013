package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "chat_queue/pkg/errors"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChats struct {
	mu    sync.Mutex
	chats [][]string
	err   error
}

func (f *fakeChats) CreateChat(_ context.Context, participantIDs []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.chats = append(f.chats, append([]string(nil), participantIDs...))
	return fmt.Sprintf("chat-%d", len(f.chats)), nil
}

func (f *fakeChats) created() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.chats...)
}

type published struct {
	topic   string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *fakePublisher) Publish(_ context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, payload: payload})
	return nil
}

func (p *fakePublisher) on(topic string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []any
	for _, e := range p.events {
		if e.topic == topic {
			out = append(out, e.payload)
		}
	}
	return out
}

// tickClock advances one millisecond per call so join order is strict.
type tickClock struct {
	base  time.Time
	ticks atomic.Int64
}

func (c *tickClock) Now() time.Time {
	return c.base.Add(time.Duration(c.ticks.Add(1)) * time.Millisecond)
}

type fixture struct {
	engine *Engine
	store  *MemoryStore
	chats  *fakeChats
	pub    *fakePublisher
	clock  *tickClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: NewMemoryStore(),
		chats: &fakeChats{},
		pub:   &fakePublisher{},
		clock: &tickClock{base: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.engine = NewEngine(f.store, f.chats, f.pub, zerolog.Nop(), WithClock(f.clock.Now))
	return f
}

func (f *fixture) enqueue(t *testing.T, users ...string) {
	t.Helper()
	for _, u := range users {
		_, err := f.store.Insert(context.Background(), u, f.clock.Now())
		require.NoError(t, err)
	}
}

func TestInitiateChat_QueuesWhenEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.InitiateChat(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Queued(1), res)

	joined := f.pub.on(TopicUserJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, "alice", joined[0].(Membership).UserID)
	assert.Empty(t, f.chats.created())
}

func TestInitiateChat_PairsFIFO(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enqueue(t, "a", "b", "c")

	res, err := f.engine.InitiateChat(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, KindPaired, res.Kind)
	assert.Equal(t, "chat-1", res.ChatID)
	assert.Equal(t, [][]string{{"a", "d"}}, f.chats.created())

	entries, err := f.engine.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].UserID)
	assert.Equal(t, "c", entries[1].UserID)

	// b and c each moved up one place.
	assert.Equal(t, []any{PositionUpdate{UserID: "b", Position: 1}}, f.pub.on(PositionTopic("b")))
	assert.Equal(t, []any{PositionUpdate{UserID: "c", Position: 2}}, f.pub.on(PositionTopic("c")))
}

func TestInitiateChat_RejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.InitiateChat(ctx, "alice")
	require.NoError(t, err)

	_, err = f.engine.InitiateChat(ctx, "alice")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyInQueue)

	entries, err := f.engine.Queue(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Empty(t, f.chats.created())
}

func TestInitiateChat_RequiresIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.InitiateChat(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
	_, err = f.engine.DequeueUser(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
	_, err = f.engine.QueuePosition(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
}

func TestInitiateChat_ChatFailureKeepsWaitingEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enqueue(t, "x")
	f.chats.err = errors.New("chat store down")

	_, err := f.engine.InitiateChat(ctx, "y")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

	entries, err := f.engine.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x", entries[0].UserID)
	assert.Empty(t, f.pub.on(TopicChatStarted))
}

func TestInitiateChat_NoDoublePairingUnderConcurrency(t *testing.T) {
	for trial := 0; trial < 200; trial++ {
		f := newFixture(t)
		ctx := context.Background()
		f.enqueue(t, "x")

		var wg sync.WaitGroup
		results := make([]Result, 2)
		errs := make([]error, 2)
		start := make(chan struct{})
		for i, u := range []string{"u1", "u2"} {
			wg.Add(1)
			go func(i int, u string) {
				defer wg.Done()
				<-start
				results[i], errs[i] = f.engine.InitiateChat(ctx, u)
			}(i, u)
		}
		close(start)
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		paired, queued := 0, 0
		for _, r := range results {
			switch r.Kind {
			case KindPaired:
				paired++
			case KindQueued:
				queued++
				assert.Equal(t, 1, r.Position)
			}
		}
		assert.Equal(t, 1, paired, "trial %d", trial)
		assert.Equal(t, 1, queued, "trial %d", trial)

		chats := f.chats.created()
		require.Len(t, chats, 1)
		assert.Equal(t, "x", chats[0][0])

		entries, err := f.engine.Queue(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.NotEqual(t, "x", entries[0].UserID)
	}
}

func TestQueuePosition_RenumbersAfterDequeue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enqueue(t, "a", "b", "c")

	res, err := f.engine.QueuePosition(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, Queued(2), res)

	res, err = f.engine.DequeueUser(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, Left(), res)

	res, err = f.engine.QueuePosition(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, Queued(1), res)

	assert.Equal(t, []any{PositionUpdate{UserID: "b", Position: 1}}, f.pub.on(PositionTopic("b")))
	assert.Equal(t, []any{PositionUpdate{UserID: "c", Position: 2}}, f.pub.on(PositionTopic("c")))
	assert.Empty(t, f.pub.on(PositionTopic("a")))
}

func TestDequeueUser_OnlyNotifiesLaterEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enqueue(t, "a", "b", "c")

	_, err := f.engine.DequeueUser(ctx, "b")
	require.NoError(t, err)

	assert.Empty(t, f.pub.on(PositionTopic("a")))
	assert.Equal(t, []any{PositionUpdate{UserID: "c", Position: 2}}, f.pub.on(PositionTopic("c")))

	left := f.pub.on(TopicUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, ReasonDequeued, left[0].(Membership).Reason)
}

func TestDequeueUser_AbsentAndIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.DequeueUser(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, NotInQueue(), res)
	assert.Equal(t, 0, res.Position)

	f.enqueue(t, "alice")
	res, err = f.engine.DequeueUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, KindLeft, res.Kind)

	res, err = f.engine.DequeueUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, NotInQueue(), res)

	res, err = f.engine.QueuePosition(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, NotInQueue(), res)
}

func TestInitiateChat_AliceAndBob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.InitiateChat(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Queued(1), res)

	res, err = f.engine.InitiateChat(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, KindPaired, res.Kind)

	started := f.pub.on(TopicChatStarted)
	require.Len(t, started, 1)
	ev := started[0].(ChatStarted)
	assert.Equal(t, res.ChatID, ev.ChatID)
	assert.Equal(t, []string{"alice", "bob"}, ev.Participants)
	assert.True(t, ev.Includes("alice"))
	assert.False(t, ev.Includes("ali"))
}

func TestEvict_DequeuesStaleEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enqueue(t, "old1", "old2")
	cutoff := f.clock.Now()
	f.enqueue(t, "fresh")

	n, err := f.engine.Evict(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := f.engine.QueuePosition(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, Queued(1), res)

	updates := f.pub.on(PositionTopic("fresh"))
	require.NotEmpty(t, updates)
	assert.Equal(t, PositionUpdate{UserID: "fresh", Position: 1}, updates[len(updates)-1])

	for _, ev := range f.pub.on(TopicUserLeft) {
		assert.Equal(t, ReasonExpired, ev.(Membership).Reason)
	}
}

// flakyStore loses the first n atomic units.
type flakyStore struct {
	*MemoryStore
	remaining int
}

func (s *flakyStore) Atomically(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if s.remaining > 0 {
		s.remaining--
		return ErrPairingRaceLost
	}
	return s.MemoryStore.Atomically(ctx, fn)
}

func TestInitiateChat_RetriesLostRace(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(), remaining: 2}
	e := NewEngine(store, &fakeChats{}, &fakePublisher{}, zerolog.Nop(), WithMaxAttempts(3))

	res, err := e.InitiateChat(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, Queued(1), res)
}

func TestInitiateChat_GivesUpAfterMaxAttempts(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(), remaining: 10}
	e := NewEngine(store, &fakeChats{}, &fakePublisher{}, zerolog.Nop(), WithMaxAttempts(3))

	_, err := e.InitiateChat(context.Background(), "alice")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.ErrorIs(t, err, ErrPairingRaceLost)
	assert.Equal(t, 7, store.remaining)
}

// rejoinStore runs onList once, right after ListOrdered took its snapshot.
type rejoinStore struct {
	*MemoryStore
	onList func()
}

func (s *rejoinStore) ListOrdered(ctx context.Context) ([]Entry, error) {
	entries, err := s.MemoryStore.ListOrdered(ctx)
	if hook := s.onList; hook != nil {
		s.onList = nil
		hook()
	}
	return entries, err
}

func TestEvict_KeepsEntryOfUserWhoRejoined(t *testing.T) {
	clock := &tickClock{base: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := &rejoinStore{MemoryStore: NewMemoryStore()}
	pub := &fakePublisher{}
	e := NewEngine(store, &fakeChats{}, pub, zerolog.Nop(), WithClock(clock.Now))
	ctx := context.Background()

	_, err := store.Insert(ctx, "alice", clock.Now())
	require.NoError(t, err)
	cutoff := clock.Now()

	store.onList = func() {
		res, err := e.InitiateChat(ctx, "bob")
		require.NoError(t, err)
		require.Equal(t, KindPaired, res.Kind)
		res, err = e.InitiateChat(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, Queued(1), res)
	}

	n, err := e.Evict(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, n)

	res, err := e.QueuePosition(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Queued(1), res)

	for _, ev := range pub.on(TopicUserLeft) {
		assert.NotEqual(t, ReasonExpired, ev.(Membership).Reason)
	}
}

// vanishedTx finds the entry but no longer counts it, as if it was removed
// between the two reads.
type vanishedTx struct{ Tx }

func (vanishedTx) CountJoinedAtOrBefore(context.Context, Entry) (int, error) { return 0, nil }

type vanishingStore struct{ *MemoryStore }

func (s vanishingStore) Atomically(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.MemoryStore.Atomically(ctx, func(ctx context.Context, tx Tx) error {
		return fn(ctx, vanishedTx{tx})
	})
}

func TestQueuePosition_NeverReportsZero(t *testing.T) {
	store := vanishingStore{NewMemoryStore()}
	e := NewEngine(store, &fakeChats{}, &fakePublisher{}, zerolog.Nop())
	ctx := context.Background()
	_, err := store.Insert(ctx, "alice", time.Now())
	require.NoError(t, err)

	res, err := e.QueuePosition(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, NotInQueue(), res)
}

func TestQueuePosition_ConsistentWhilePairing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_, _ = f.engine.InitiateChat(ctx, "alice")
			_, _ = f.engine.InitiateChat(ctx, fmt.Sprintf("partner-%d", i))
		}
	}()

	for i := 0; i < 500; i++ {
		res, err := f.engine.QueuePosition(ctx, "alice")
		require.NoError(t, err)
		if res.Kind == KindQueued {
			assert.Equal(t, 1, res.Position)
		} else {
			assert.Equal(t, KindNotInQueue, res.Kind)
		}
	}
	close(stop)
	wg.Wait()
}
