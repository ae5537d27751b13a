package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/blogstore/internal/blog"
	"github.com/roach88/blogstore/internal/model"
)

// File names inside a backup directory.
const (
	UsersFile = "users.json"
	PostsFile = "posts.json"
	ChatsFile = "chats.json"
)

const dirLayout = "2006-01-02T15:04:05.000Z"

// dirSafe turns an ISO timestamp into a portable directory name.
var dirSafe = strings.NewReplacer(":", "-", ".", "-")

// Summary reports what an export or import touched. A count of -1 means
// the collection's file was absent on import.
type Summary struct {
	Dir   string `json:"dir"`
	Users int    `json:"users"`
	Posts int    `json:"posts"`
	Chats int    `json:"chats"`
}

// DirName returns the directory name Export uses for a backup taken at now.
func DirName(now time.Time) string {
	return "backup-" + dirSafe.Replace(now.UTC().Format(dirLayout))
}

// Export writes the cached collections of s into a new directory under dir.
func Export(ctx context.Context, s *blog.Store, dir string, now time.Time) (Summary, error) {
	target := filepath.Join(dir, DirName(now))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create backup dir: %w", err)
	}

	users := s.Accounts.Snapshot()
	posts := s.Posts.Snapshot()
	chats := s.Chats.Snapshot()

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return writeJSON(filepath.Join(target, UsersFile), users) })
	g.Go(func() error { return writeJSON(filepath.Join(target, PostsFile), posts) })
	g.Go(func() error { return writeJSON(filepath.Join(target, ChatsFile), chats) })
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	sum := Summary{Dir: target, Users: len(users), Posts: len(posts), Chats: len(chats)}
	slog.Info("backup exported", "dir", sum.Dir, "users", sum.Users, "posts", sum.Posts, "chats", sum.Chats)
	return sum, nil
}

// Import validates every backup file present in dir and then replaces the
// matching collections. Nothing is written unless all present files are
// valid.
func Import(ctx context.Context, s *blog.Store, dir string) (Summary, error) {
	var (
		users []model.Account
		posts []model.Post
		chats []model.Conversation

		haveUsers, havePosts, haveChats bool
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		haveUsers, err = readFile(filepath.Join(dir, UsersFile), "#Users", &users)
		return err
	})
	g.Go(func() (err error) {
		havePosts, err = readFile(filepath.Join(dir, PostsFile), "#Posts", &posts)
		return err
	})
	g.Go(func() (err error) {
		haveChats, err = readFile(filepath.Join(dir, ChatsFile), "#Chats", &chats)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	sum := Summary{Dir: dir, Users: -1, Posts: -1, Chats: -1}
	if haveUsers {
		if err := s.Accounts.Save(ctx, users); err != nil {
			return sum, fmt.Errorf("import users: %w", err)
		}
		sum.Users = len(users)
	} else {
		slog.Warn("backup file missing, skipping", "file", UsersFile)
	}
	if havePosts {
		if err := s.Posts.Save(ctx, posts); err != nil {
			return sum, fmt.Errorf("import posts: %w", err)
		}
		sum.Posts = len(posts)
	} else {
		slog.Warn("backup file missing, skipping", "file", PostsFile)
	}
	if haveChats {
		if err := s.Chats.Save(ctx, chats); err != nil {
			return sum, fmt.Errorf("import chats: %w", err)
		}
		sum.Chats = len(chats)
	} else {
		slog.Warn("backup file missing, skipping", "file", ChatsFile)
	}

	slog.Info("backup imported", "dir", dir, "users", sum.Users, "posts", sum.Posts, "chats", sum.Chats)
	return sum, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readFile loads and validates path into out. It reports false without
// error when the file does not exist.
func readFile(path, definition string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	if err := validate(definition, filepath.Base(path), data); err != nil {
		return false, fmt.Errorf("invalid backup: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}
