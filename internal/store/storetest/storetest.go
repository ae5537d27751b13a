// Package storetest is a conformance suite for store.Backend
// implementations.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blogstore/internal/model"
	"github.com/roach88/blogstore/internal/store"
)

// OpenFunc returns a fresh, empty backend. The suite closes it.
type OpenFunc func(t *testing.T) store.Backend

// Run executes every conformance test against backends produced by open.
func Run(t *testing.T, open OpenFunc) {
	t.Run("Tables", func(t *testing.T) { testTables(t, open) })
	t.Run("Counters", func(t *testing.T) { testCounters(t, open) })
	t.Run("EventLog", func(t *testing.T) { testEventLog(t, open) })
	t.Run("Closed", func(t *testing.T) { testClosed(t, open) })
}

func newBackend(t *testing.T, open OpenFunc) store.Backend {
	t.Helper()
	b := open(t)
	t.Cleanup(func() { b.Close() })
	return b
}

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func samplePost(id int64) model.Post {
	return model.Post{
		ID:      id,
		Title:   fmt.Sprintf("post %d", id),
		Content: "<p>hello & goodbye</p>",
		Author:  5,
		Date:    day.Add(time.Duration(id) * time.Hour),
		Likes:   2,
		LikedBy: []int64{5, 6},
		Comments: []model.Comment{
			{Content: "first", Author: 6, Date: day.Add(90 * time.Minute)},
		},
	}
}

func testTables(t *testing.T, open OpenFunc) {
	ctx := context.Background()

	t.Run("LoadAllEmpty", func(t *testing.T) {
		b := newBackend(t, open)

		accounts, err := b.Accounts().LoadAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, accounts)
		assert.Empty(t, accounts)

		_, ok, err := b.Posts().MaxID(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("InsertOrdersByID", func(t *testing.T) {
		b := newBackend(t, open)
		for _, id := range []int64{3, 1, 2} {
			require.NoError(t, b.Accounts().Insert(ctx, model.Account{
				ID: id, Username: fmt.Sprintf("user%d", id), Password: "x",
			}))
		}

		accounts, err := b.Accounts().LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 3)
		for i, a := range accounts {
			assert.Equal(t, int64(i+1), a.ID)
		}

		maxID, ok, err := b.Accounts().MaxID(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(3), maxID)
	})

	t.Run("InsertConflicts", func(t *testing.T) {
		b := newBackend(t, open)
		require.NoError(t, b.Accounts().Insert(ctx, model.Account{ID: 1, Username: "alice"}))

		err := b.Accounts().Insert(ctx, model.Account{ID: 1, Username: "bob"})
		assert.ErrorIs(t, err, store.ErrConflict)

		err = b.Accounts().Insert(ctx, model.Account{ID: 2, Username: "alice"})
		assert.ErrorIs(t, err, store.ErrConflict)
	})

	t.Run("PostRoundTrip", func(t *testing.T) {
		b := newBackend(t, open)
		want := samplePost(1)
		anon := model.Post{ID: 2, Title: "anonymous", Date: day}

		require.NoError(t, b.Posts().Insert(ctx, want))
		require.NoError(t, b.Posts().Insert(ctx, anon))

		posts, err := b.Posts().LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, want, posts[0])
		assert.Equal(t, anon.Normalize(), posts[1])
	})

	t.Run("ChatRoundTrip", func(t *testing.T) {
		b := newBackend(t, open)
		want := model.Conversation{
			ID:    7,
			Users: []int64{5, 6},
			Messages: []model.Message{
				{ChatID: 7, From: 5, Content: "hi", Date: day},
				{ChatID: 7, From: 6, Content: "hey", Date: day.Add(time.Minute)},
			},
		}
		require.NoError(t, b.Chats().Insert(ctx, want))
		require.NoError(t, b.Chats().Insert(ctx, model.Conversation{ID: 8}))

		chats, err := b.Chats().LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, chats, 2)
		assert.Equal(t, want, chats[0])
		assert.Equal(t, []int64{}, chats[1].Users)
		assert.Equal(t, []model.Message{}, chats[1].Messages)
	})

	t.Run("ReplaceAll", func(t *testing.T) {
		b := newBackend(t, open)
		for _, id := range []int64{1, 2, 3} {
			require.NoError(t, b.Posts().Insert(ctx, samplePost(id)))
		}

		snapshot := []model.Post{samplePost(2), samplePost(9)}
		require.NoError(t, b.Posts().ReplaceAll(ctx, snapshot))

		posts, err := b.Posts().LoadAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, snapshot, posts)

		require.NoError(t, b.Posts().ReplaceAll(ctx, nil))
		posts, err = b.Posts().LoadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	t.Run("ReplaceAllOfLoadAllIsIdempotent", func(t *testing.T) {
		b := newBackend(t, open)
		for _, id := range []int64{4, 2, 8} {
			require.NoError(t, b.Posts().Insert(ctx, samplePost(id)))
		}

		before, err := b.Posts().LoadAll(ctx)
		require.NoError(t, err)
		require.NoError(t, b.Posts().ReplaceAll(ctx, before))

		after, err := b.Posts().LoadAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("ReplaceAllIsAtomic", func(t *testing.T) {
		b := newBackend(t, open)
		require.NoError(t, b.Accounts().Insert(ctx, model.Account{ID: 1, Username: "alice"}))

		bad := []model.Account{
			{ID: 2, Username: "bob"},
			{ID: 3, Username: "bob"},
		}
		err := b.Accounts().ReplaceAll(ctx, bad)
		require.ErrorIs(t, err, store.ErrConflict)

		accounts, err := b.Accounts().LoadAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []model.Account{{ID: 1, Username: "alice"}}, accounts)
	})
}

func testCounters(t *testing.T, open OpenFunc) {
	ctx := context.Background()

	t.Run("CreateCounterKeepsFirst", func(t *testing.T) {
		b := newBackend(t, open)

		_, ok, err := b.CounterValue(ctx, "posts")
		require.NoError(t, err)
		assert.False(t, ok)

		created, err := b.CreateCounter(ctx, "posts", 4)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = b.CreateCounter(ctx, "posts", 100)
		require.NoError(t, err)
		assert.False(t, created)

		seq, ok, err := b.CounterValue(ctx, "posts")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(4), seq)
	})

	t.Run("IncrementReturnsPreviousValue", func(t *testing.T) {
		b := newBackend(t, open)
		_, err := b.CreateCounter(ctx, "users", 4)
		require.NoError(t, err)

		got, err := b.Increment(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, int64(4), got)

		seq, _, err := b.CounterValue(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, int64(5), seq)
	})

	t.Run("IncrementCreatesMissingCounter", func(t *testing.T) {
		b := newBackend(t, open)

		for want := int64(1); want <= 3; want++ {
			got, err := b.Increment(ctx, "chats")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("ConcurrentIncrementsAreUnique", func(t *testing.T) {
		b := newBackend(t, open)
		_, err := b.CreateCounter(ctx, "posts", 10)
		require.NoError(t, err)

		const n = 50
		var (
			mu  sync.Mutex
			got []int64
			wg  sync.WaitGroup
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := b.Increment(ctx, "posts")
				assert.NoError(t, err)
				mu.Lock()
				got = append(got, v)
				mu.Unlock()
			}()
		}
		wg.Wait()

		sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
		require.Len(t, got, n)
		for i, v := range got {
			assert.Equal(t, int64(10+i), v)
		}
	})
}

func event(id, typ string, ts time.Time) model.Event {
	return model.Event{ID: id, Type: typ, Timestamp: ts, Metadata: map[string]any{"path": "/"}}
}

func testEventLog(t *testing.T, open OpenFunc) {
	ctx := context.Background()

	t.Run("CountBucketsByHour", func(t *testing.T) {
		b := newBackend(t, open)
		events := []model.Event{
			event("e1", "visit", day.Add(23*time.Hour)),
			event("e2", "visit", day),
			event("e3", "visit", day.Add(5*time.Hour+59*time.Minute)),
			event("e4", "visit", day.Add(30*time.Minute)),
			event("e5", "visit", day.Add(5*time.Hour)),
			event("e6", "login", day.Add(5*time.Hour)),
			event("e7", "visit", day.Add(24*time.Hour)),
			event("e8", "visit", day.Add(-time.Millisecond)),
		}
		for _, ev := range events {
			require.NoError(t, b.Append(ctx, ev))
		}

		base := day.UnixMilli() / time.Hour.Milliseconds()
		counts, err := b.CountBuckets(ctx, day, day.Add(24*time.Hour), "visit", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, map[int64]int64{base: 2, base + 5: 2, base + 23: 1}, counts)

		counts, err = b.CountBuckets(ctx, day, day.Add(24*time.Hour), "", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(3), counts[base+5])
	})

	t.Run("CountBucketsEmpty", func(t *testing.T) {
		b := newBackend(t, open)
		counts, err := b.CountBuckets(ctx, day, day.Add(24*time.Hour), "visit", 24*time.Hour)
		require.NoError(t, err)
		assert.NotNil(t, counts)
		assert.Empty(t, counts)
	})

	t.Run("AppendDuplicateID", func(t *testing.T) {
		b := newBackend(t, open)
		require.NoError(t, b.Append(ctx, event("same", "visit", day)))
		err := b.Append(ctx, event("same", "visit", day.Add(time.Hour)))
		assert.ErrorIs(t, err, store.ErrConflict)
	})

	t.Run("LoadEvents", func(t *testing.T) {
		b := newBackend(t, open)
		require.NoError(t, b.Append(ctx, event("b", "visit", day.Add(2*time.Hour))))
		require.NoError(t, b.Append(ctx, event("a", "login", day.Add(time.Hour))))
		require.NoError(t, b.Append(ctx, event("c", "visit", day.Add(48*time.Hour))))

		events, err := b.LoadEvents(ctx, day, day.Add(24*time.Hour))
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "a", events[0].ID)
		assert.Equal(t, "login", events[0].Type)
		assert.True(t, day.Add(time.Hour).Equal(events[0].Timestamp))
		assert.Equal(t, "/", events[0].Metadata["path"])
		assert.Equal(t, "b", events[1].ID)
	})
}

func testClosed(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	b := open(t)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err := b.Accounts().LoadAll(ctx)
	assert.ErrorIs(t, err, store.ErrClosed)
	_, err = b.Increment(ctx, "users")
	assert.ErrorIs(t, err, store.ErrClosed)
	err = b.Append(ctx, event("x", "visit", day))
	assert.ErrorIs(t, err, store.ErrClosed)
}
