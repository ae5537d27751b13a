package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/blogstore/internal/model"
	"github.com/roach88/blogstore/internal/sequence"
	"github.com/roach88/blogstore/internal/store"
)

// Options configures a Store.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Clock stamps new posts, comments and messages. Defaults to the real
	// clock.
	Clock quartz.Clock
}

// Store owns the three collections and their caches.
type Store struct {
	Accounts *Collection[model.Account]
	Posts    *Collection[model.Post]
	Chats    *Collection[model.Conversation]

	alloc  *sequence.Allocator
	clock  quartz.Clock
	logger *slog.Logger

	// mu serializes the derived helpers' copy-mutate-persist sequences.
	mu sync.Mutex
}

// Open builds a Store over backend and registers one counter per
// collection with alloc. Call Bootstrap before anything else.
func Open(backend store.Backend, alloc *sequence.Allocator, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}

	return &Store{
		Accounts: newCollection(model.KindUsers, backend.Accounts(), alloc, logger),
		Posts:    newCollection(model.KindPosts, backend.Posts(), alloc, logger),
		Chats:    newCollection(model.KindChats, backend.Chats(), alloc, logger),
		alloc:    alloc,
		clock:    clock,
		logger:   logger,
	}
}

// Bootstrap ensures every counter, then loads every cache.
//
// Idempotent: later calls find the counters present and reload the caches,
// which is how a process recovers from a cache it no longer trusts. Cache
// loads soft-fail; counter failures are returned after the caches are
// loaded, and Next retries them on first use.
func (s *Store) Bootstrap(ctx context.Context) error {
	var g errgroup.Group
	for _, kind := range model.Kinds {
		g.Go(func() error {
			return s.alloc.Ensure(ctx, kind.String())
		})
	}
	ensureErr := g.Wait()

	var loads errgroup.Group
	counts := make([]int, len(model.Kinds))
	for i, kind := range model.Kinds {
		loads.Go(func() error {
			counts[i] = s.reload(ctx, kind)
			return nil
		})
	}
	_ = loads.Wait()

	s.logger.Info("bootstrap complete",
		"users", counts[0], "posts", counts[1], "chats", counts[2])
	if ensureErr != nil {
		return fmt.Errorf("bootstrap counters: %w", ensureErr)
	}
	return nil
}

func (s *Store) reload(ctx context.Context, kind model.Kind) int {
	switch kind {
	case model.KindUsers:
		return s.Accounts.Reload(ctx)
	case model.KindPosts:
		return s.Posts.Reload(ctx)
	default:
		return s.Chats.Reload(ctx)
	}
}

// Next allocates an id for the named collection.
func (s *Store) Next(ctx context.Context, kind model.Kind) (int64, error) {
	switch kind {
	case model.KindUsers:
		return s.Accounts.Next(ctx)
	case model.KindPosts:
		return s.Posts.Next(ctx)
	case model.KindChats:
		return s.Chats.Next(ctx)
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Counts returns the cached record count per collection.
func (s *Store) Counts() map[model.Kind]int {
	return map[model.Kind]int{
		model.KindUsers: s.Accounts.Len(),
		model.KindPosts: s.Posts.Len(),
		model.KindChats: s.Chats.Len(),
	}
}

// CreateAccount adds an account. The password is stored as given; hashing
// belongs to the caller.
func (s *Store) CreateAccount(ctx context.Context, username, password string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.Accounts.Snapshot() {
		if a.Username == username {
			return model.Account{}, fmt.Errorf("%w: %q", ErrUsernameTaken, username)
		}
	}
	acct, err := s.Accounts.Add(ctx, model.Account{Username: username, Password: password})
	if errors.Is(err, store.ErrConflict) {
		return model.Account{}, fmt.Errorf("%w: %q", ErrUsernameTaken, username)
	}
	return acct, err
}

// AuthorName returns the username for authorID, or "Anonymous".
func (s *Store) AuthorName(authorID int64) string {
	if a, ok := s.Accounts.Find(authorID); ok && authorID != 0 {
		return a.Username
	}
	return "Anonymous"
}

// CreatePost adds a post stamped with the current time. author 0 means
// anonymous.
func (s *Store) CreatePost(ctx context.Context, title, content string, author int64) (model.Post, error) {
	return s.Posts.Add(ctx, model.Post{
		Title:   title,
		Content: content,
		Author:  author,
		Date:    s.clock.Now().UTC(),
	})
}

// ToggleLike adds or removes userID's like on a post and returns the new
// like count and whether the user now likes the post. Likes never drop
// below zero.
func (s *Store) ToggleLike(ctx context.Context, postID, userID int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := s.Posts.Snapshot()
	i := indexOf(posts, postID)
	if i < 0 {
		return 0, false, fmt.Errorf("post %d: %w", postID, store.ErrNotFound)
	}

	p := &posts[i]
	liked := true
	if j := slices.Index(p.LikedBy, userID); j >= 0 {
		p.LikedBy = append(p.LikedBy[:j], p.LikedBy[j+1:]...)
		p.Likes = max(0, p.Likes-1)
		liked = false
	} else {
		p.LikedBy = append(p.LikedBy, userID)
		p.Likes++
	}

	if err := s.Posts.Save(ctx, posts); err != nil {
		return 0, false, err
	}
	return p.Likes, liked, nil
}

// AddComment appends a comment to a post and returns the post's comments.
func (s *Store) AddComment(ctx context.Context, postID, author int64, content string) ([]model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := s.Posts.Snapshot()
	i := indexOf(posts, postID)
	if i < 0 {
		return nil, fmt.Errorf("post %d: %w", postID, store.ErrNotFound)
	}

	posts[i].Comments = append(posts[i].Comments, model.Comment{
		Content: content,
		Author:  author,
		Date:    s.clock.Now().UTC(),
	})
	if err := s.Posts.Save(ctx, posts); err != nil {
		return nil, err
	}
	return posts[i].Clone().Comments, nil
}

// ChatsForUser returns every chat userID participates in.
func (s *Store) ChatsForUser(userID int64) []model.Conversation {
	out := []model.Conversation{}
	for _, c := range s.Chats.Snapshot() {
		if c.HasUser(userID) {
			out = append(out, c)
		}
	}
	return out
}

// FindChatByUsers returns the two-person chat between a and b, in either
// order.
func (s *Store) FindChatByUsers(a, b int64) (model.Conversation, bool) {
	for _, c := range s.Chats.Snapshot() {
		if len(c.Users) != 2 {
			continue
		}
		if (c.Users[0] == a && c.Users[1] == b) || (c.Users[0] == b && c.Users[1] == a) {
			return c, true
		}
	}
	return model.Conversation{}, false
}

// CreateChat starts a chat between a and b.
func (s *Store) CreateChat(ctx context.Context, a, b int64) (model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.FindChatByUsers(a, b); ok {
		return model.Conversation{}, fmt.Errorf("%w: chat %d", ErrChatExists, existing.ID)
	}
	return s.Chats.Add(ctx, model.Conversation{Users: []int64{a, b}})
}

// DeleteChat removes one chat.
func (s *Store) DeleteChat(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats := s.Chats.Snapshot()
	i := indexOf(chats, chatID)
	if i < 0 {
		return fmt.Errorf("chat %d: %w", chatID, store.ErrNotFound)
	}
	return s.Chats.Save(ctx, append(chats[:i], chats[i+1:]...))
}

// RemoveChatsForUser deletes every chat userID participates in and returns
// how many were removed.
func (s *Store) RemoveChatsForUser(ctx context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats := s.Chats.Snapshot()
	kept := chats[:0]
	for _, c := range chats {
		if !c.HasUser(userID) {
			kept = append(kept, c)
		}
	}
	if err := s.Chats.Save(ctx, kept); err != nil {
		return 0, err
	}
	return len(chats) - len(kept), nil
}

// AppendMessage adds a message from an account to a chat.
func (s *Store) AppendMessage(ctx context.Context, chatID, from int64, content string) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats := s.Chats.Snapshot()
	i := indexOf(chats, chatID)
	if i < 0 {
		return model.Message{}, fmt.Errorf("chat %d: %w", chatID, store.ErrNotFound)
	}

	msg := model.Message{
		ChatID:  chatID,
		From:    from,
		Content: content,
		Date:    s.clock.Now().UTC(),
	}
	chats[i].Messages = append(chats[i].Messages, msg)
	if err := s.Chats.Save(ctx, chats); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

func indexOf[T entity[T]](items []T, id int64) int {
	for i, item := range items {
		if item.Key() == id {
			return i
		}
	}
	return -1
}
