package blog

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blogstore/internal/model"
	"github.com/roach88/blogstore/internal/sequence"
	"github.com/roach88/blogstore/internal/store"
	"github.com/roach88/blogstore/internal/testutil"
)

var now = time.Date(2024, 5, 4, 10, 30, 0, 0, time.UTC)

type fixture struct {
	backend store.Backend
	store   *Store
	clock   *quartz.Mock
	logs    *testutil.LogBuffer
}

func newFixture(t *testing.T, backend store.Backend) *fixture {
	t.Helper()
	logger, logs := testutil.CaptureLogger()
	clock := testutil.MockClockAt(t, now)
	alloc := sequence.New(backend, sequence.Options{Logger: logger})
	s := Open(backend, alloc, Options{Logger: logger, Clock: clock})
	require.NoError(t, s.Bootstrap(context.Background()))
	return &fixture{backend: backend, store: s, clock: clock, logs: logs}
}

func seedChats(t *testing.T, backend store.Backend, chats ...model.Conversation) {
	t.Helper()
	for _, c := range chats {
		require.NoError(t, backend.Chats().Insert(context.Background(), c))
	}
}

func TestBootstrap_LoadsCachesAndCounters(t *testing.T) {
	ctx := context.Background()
	backend := testutil.OpenSQLite(t)
	for _, id := range []int64{3, 1, 2} {
		require.NoError(t, backend.Posts().Insert(ctx, model.Post{ID: id, Title: "p"}))
	}
	require.NoError(t, backend.Accounts().Insert(ctx, model.Account{ID: 1, Username: "admin"}))

	f := newFixture(t, backend)

	assert.Equal(t, map[model.Kind]int{
		model.KindUsers: 1,
		model.KindPosts: 3,
		model.KindChats: 0,
	}, f.store.Counts())

	id, err := f.store.Next(ctx, model.KindPosts)
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	id, err = f.store.Next(ctx, model.KindChats)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	// Second bootstrap keeps the counters and reloads the caches.
	require.NoError(t, f.store.Bootstrap(ctx))
	assert.Equal(t, 3, f.store.Posts.Len())
	id, err = f.store.Next(ctx, model.KindPosts)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
}

func TestNext_UnknownKind(t *testing.T) {
	f := newFixture(t, testutil.OpenBolt(t))
	_, err := f.store.Next(context.Background(), model.Kind("comments"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestAdd_AllocatesAndMirrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutil.OpenSQLite(t))

	p, err := f.store.CreatePost(ctx, "hello", "world", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, now, p.Date)
	assert.Equal(t, []int64{}, p.LikedBy)

	// A record with an id keeps it.
	p2, err := f.store.Posts.Add(ctx, model.Post{ID: 10, Title: "explicit"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), p2.ID)

	durable, err := f.backend.Posts().LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, durable, f.store.Posts.Snapshot())
}

func TestAdd_FailureLeavesCacheUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutil.OpenSQLite(t))
	_, err := f.store.Posts.Add(ctx, model.Post{ID: 1})
	require.NoError(t, err)

	_, err = f.store.Posts.Add(ctx, model.Post{ID: 1, Title: "dup"})
	require.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, 1, f.store.Posts.Len())
}

func TestSave_LoadAllRoundTripIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := testutil.OpenBolt(t)
	require.NoError(t, backend.Posts().Insert(ctx, model.Post{
		ID: 2, Title: "b", Date: now, LikedBy: []int64{1},
		Comments: []model.Comment{{Content: "c", Author: 1, Date: now}},
	}))
	require.NoError(t, backend.Posts().Insert(ctx, model.Post{ID: 1, Title: "a"}))
	f := newFixture(t, backend)

	before := f.store.Posts.LoadAll(ctx)
	require.NoError(t, f.store.Posts.Save(ctx, f.store.Posts.LoadAll(ctx)))
	after := f.store.Posts.LoadAll(ctx)

	assert.Equal(t, before, after)
	assert.Equal(t, after, f.store.Posts.Snapshot())
}

func TestSave_FailureLeavesCacheUnchanged(t *testing.T) {
	ctx := context.Background()
	backend := testutil.OpenSQLite(t)
	require.NoError(t, backend.Accounts().Insert(ctx, model.Account{ID: 1, Username: "a"}))
	f := newFixture(t, backend)

	require.NoError(t, backend.Close())
	err := f.store.Accounts.Save(ctx, nil)
	require.ErrorIs(t, err, store.ErrClosed)
	assert.Equal(t, 1, f.store.Accounts.Len())
}

func TestLoadAll_SoftFails(t *testing.T) {
	ctx := context.Background()
	backend := testutil.OpenSQLite(t)
	f := newFixture(t, backend)
	require.NoError(t, backend.Close())

	got := f.store.Chats.LoadAll(ctx)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Contains(t, f.logs.String(), "level=ERROR")
	assert.Contains(t, f.logs.String(), "collection=chats")
}

func TestRemoveChatsForUser(t *testing.T) {
	ctx := context.Background()
	backend := testutil.OpenSQLite(t)
	seedChats(t, backend,
		model.Conversation{ID: 1, Users: []int64{5, 6}},
		model.Conversation{ID: 2, Users: []int64{6, 7}},
		model.Conversation{ID: 3, Users: []int64{7, 8}},
	)
	f := newFixture(t, backend)

	removed, err := f.store.RemoveChatsForUser(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	durable, err := backend.Chats().LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, durable, 1)
	assert.Equal(t, int64(3), durable[0].ID)
	for _, c := range f.store.Chats.Snapshot() {
		assert.False(t, c.HasUser(6))
	}
}

func TestRemoveChatsForUser_AllChats(t *testing.T) {
	ctx := context.Background()
	backend := testutil.OpenBolt(t)
	seedChats(t, backend,
		model.Conversation{ID: 1, Users: []int64{5, 6}},
		model.Conversation{ID: 2, Users: []int64{6, 7}},
	)
	f := newFixture(t, backend)

	_, err := f.store.RemoveChatsForUser(ctx, 6)
	require.NoError(t, err)

	durable, err := backend.Chats().LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, durable)
	assert.Empty(t, f.store.Chats.Snapshot())
}

func TestCreateChat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutil.OpenSQLite(t))

	c, err := f.store.CreateChat(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)
	assert.Equal(t, []int64{1, 2}, c.Users)

	_, err = f.store.CreateChat(ctx, 2, 1)
	assert.ErrorIs(t, err, ErrChatExists)

	found, ok := f.store.FindChatByUsers(2, 1)
	require.True(t, ok)
	assert.Equal(t, c.ID, found.ID)

	_, ok = f.store.FindChatByUsers(1, 3)
	assert.False(t, ok)
}

func TestDeleteChat(t *testing.T) {
	ctx := context.Background()
	backend := testutil.OpenSQLite(t)
	seedChats(t, backend,
		model.Conversation{ID: 1, Users: []int64{1, 2}},
		model.Conversation{ID: 2, Users: []int64{1, 3}},
	)
	f := newFixture(t, backend)

	require.NoError(t, f.store.DeleteChat(ctx, 1))
	assert.ErrorIs(t, f.store.DeleteChat(ctx, 1), store.ErrNotFound)

	chats := f.store.ChatsForUser(1)
	require.Len(t, chats, 1)
	assert.Equal(t, int64(2), chats[0].ID)
}

func TestAppendMessage(t *testing.T) {
	ctx := context.Background()
	backend := testutil.OpenSQLite(t)
	seedChats(t, backend, model.Conversation{ID: 4, Users: []int64{1, 2}})
	f := newFixture(t, backend)

	msg, err := f.store.AppendMessage(ctx, 4, 1, "hi")
	require.NoError(t, err)
	assert.Equal(t, model.Message{ChatID: 4, From: 1, Content: "hi", Date: now}, msg)

	durable, err := backend.Chats().LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Message{msg}, durable[0].Messages)

	_, err = f.store.AppendMessage(ctx, 99, 1, "lost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestToggleLike(t *testing.T) {
	ctx := context.Background()
	backend := testutil.OpenSQLite(t)
	require.NoError(t, backend.Posts().Insert(ctx, model.Post{ID: 1}))
	// Inconsistent legacy record: liked but zero likes.
	require.NoError(t, backend.Posts().Insert(ctx, model.Post{ID: 2, LikedBy: []int64{7}}))
	f := newFixture(t, backend)

	likes, liked, err := f.store.ToggleLike(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), likes)
	assert.True(t, liked)

	likes, liked, err = f.store.ToggleLike(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), likes)
	assert.False(t, liked)

	likes, liked, err = f.store.ToggleLike(ctx, 2, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), likes)
	assert.False(t, liked)

	p, ok := f.store.Posts.Find(2)
	require.True(t, ok)
	assert.Empty(t, p.LikedBy)

	_, _, err = f.store.ToggleLike(ctx, 3, 7)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	backend := testutil.OpenBolt(t)
	require.NoError(t, backend.Posts().Insert(ctx, model.Post{ID: 1}))
	f := newFixture(t, backend)

	comments, err := f.store.AddComment(ctx, 1, 3, "nice")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	comments, err = f.store.AddComment(ctx, 1, 4, "agreed")
	require.NoError(t, err)

	assert.Equal(t, []model.Comment{
		{Content: "nice", Author: 3, Date: now},
		{Content: "agreed", Author: 4, Date: now.Add(time.Minute)},
	}, comments)

	durable, err := backend.Posts().LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, comments, durable[0].Comments)

	_, err = f.store.AddComment(ctx, 2, 3, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateAccountAndAuthorName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutil.OpenSQLite(t))

	a, err := f.store.CreateAccount(ctx, "alice", "hash")
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)

	_, err = f.store.CreateAccount(ctx, "alice", "other")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	assert.Equal(t, "alice", f.store.AuthorName(1))
	assert.Equal(t, "Anonymous", f.store.AuthorName(0))
	assert.Equal(t, "Anonymous", f.store.AuthorName(42))
}
