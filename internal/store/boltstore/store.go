package boltstore

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"

	"github.com/roach88/blogstore/internal/model"
	"github.com/roach88/blogstore/internal/store"
)

var (
	bucketCounters  = []byte("counters")
	bucketAnalytics = []byte("analytics")
	bucketEventIDs  = []byte("analytics_ids")
)

// Options tunes the underlying bbolt database.
type Options struct {
	// Timeout bounds the wait for the file lock held by another process.
	Timeout time.Duration

	// NoSync skips fsync after each commit. Only for tests.
	NoSync bool
}

// Store is the bbolt-backed store.Backend.
type Store struct {
	bdb    *bbolt.DB
	closed atomic.Bool

	accounts *table[model.Account]
	posts    *table[model.Post]
	chats    *table[model.Conversation]
}

var _ store.Backend = (*Store)(nil)

// Open opens or creates the database file at path and makes sure every
// bucket exists.
func Open(path string, opt Options) (*Store, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = opt.Timeout
	if bopt.Timeout == 0 {
		bopt.Timeout = 10 * time.Second
	}
	bopt.NoSync = opt.NoSync
	bopt.FreelistType = bbolt.FreelistMapType

	bdb, err := bbolt.Open(path, 0o600, &bopt)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	s := &Store{bdb: bdb}
	s.accounts = newTable(s, accountSpec)
	s.posts = newTable(s, postSpec)
	s.chats = newTable(s, chatSpec)

	buckets := [][]byte{
		s.accounts.spec.bucket, s.posts.spec.bucket, s.chats.spec.bucket,
		bucketCounters, bucketAnalytics, bucketEventIDs,
	}
	err = bdb.Update(func(btx *bbolt.Tx) error {
		for _, name := range buckets {
			if _, err := btx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		bdb.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database file. Safe to call more than once.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.bdb.Close()
}

// Bolt returns the underlying database for maintenance tasks.
func (s *Store) Bolt() *bbolt.DB {
	return s.bdb
}

func (s *Store) Accounts() store.Table[model.Account] { return s.accounts }

func (s *Store) Posts() store.Table[model.Post] { return s.posts }

func (s *Store) Chats() store.Table[model.Conversation] { return s.chats }

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	return nil
}

// view and update refuse to run once the store is closed.
func (s *Store) view(fn func(btx *bbolt.Tx) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.bdb.View(fn)
}

func (s *Store) update(fn func(btx *bbolt.Tx) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.bdb.Update(fn)
}
