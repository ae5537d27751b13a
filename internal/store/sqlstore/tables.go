package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/blogstore/internal/model"
	"github.com/roach88/blogstore/internal/store"
)

// tableSpec describes how one entity kind maps onto a SQL table.
type tableSpec[T, R any] struct {
	name    string
	columns []string
	toRow   func(T) (R, error)
	fromRow func(R) (T, error)
}

// table implements store.Table over a tableSpec. R is the sqlx row struct.
type table[T, R any] struct {
	s    *Store
	spec tableSpec[T, R]

	selectSQL string
	insertSQL string
}

func newTable[T, R any](s *Store, spec tableSpec[T, R]) *table[T, R] {
	named := make([]string, len(spec.columns))
	for i, c := range spec.columns {
		named[i] = ":" + c
	}
	return &table[T, R]{
		s:    s,
		spec: spec,
		selectSQL: fmt.Sprintf("SELECT %s FROM %s ORDER BY id ASC",
			strings.Join(spec.columns, ", "), spec.name),
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			spec.name, strings.Join(spec.columns, ", "), strings.Join(named, ", ")),
	}
}

// LoadAll returns every record ordered by id ascending.
// Returns empty slice (not nil) if the table is empty.
func (t *table[T, R]) LoadAll(ctx context.Context) ([]T, error) {
	if err := t.s.checkOpen(); err != nil {
		return nil, err
	}

	var rows []R
	if err := t.s.db.SelectContext(ctx, &rows, t.selectSQL); err != nil {
		return nil, fmt.Errorf("load %s: %w", t.spec.name, err)
	}

	out := make([]T, 0, len(rows))
	for _, r := range rows {
		rec, err := t.spec.fromRow(r)
		if err != nil {
			return nil, fmt.Errorf("decode %s row: %w", t.spec.name, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReplaceAll deletes every row and inserts snapshot in one transaction.
func (t *table[T, R]) ReplaceAll(ctx context.Context, snapshot []T) error {
	if err := t.s.checkOpen(); err != nil {
		return err
	}

	rows := make([]R, 0, len(snapshot))
	for _, rec := range snapshot {
		r, err := t.spec.toRow(rec)
		if err != nil {
			return fmt.Errorf("encode %s row: %w", t.spec.name, err)
		}
		rows = append(rows, r)
	}

	return t.s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t.spec.name); err != nil {
			return fmt.Errorf("clear %s: %w", t.spec.name, err)
		}
		if len(rows) == 0 {
			return nil
		}

		stmt, err := tx.PrepareNamedContext(ctx, t.insertSQL)
		if err != nil {
			return fmt.Errorf("prepare %s insert: %w", t.spec.name, err)
		}
		defer stmt.Close()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r); err != nil {
				return t.insertError(err)
			}
		}
		return nil
	})
}

// Insert adds one record.
func (t *table[T, R]) Insert(ctx context.Context, rec T) error {
	if err := t.s.checkOpen(); err != nil {
		return err
	}

	r, err := t.spec.toRow(rec)
	if err != nil {
		return fmt.Errorf("encode %s row: %w", t.spec.name, err)
	}
	if _, err := t.s.db.NamedExecContext(ctx, t.insertSQL, r); err != nil {
		return t.insertError(err)
	}
	return nil
}

// MaxID returns the highest id in the table.
func (t *table[T, R]) MaxID(ctx context.Context) (int64, bool, error) {
	if err := t.s.checkOpen(); err != nil {
		return 0, false, err
	}

	var maxID sql.NullInt64
	if err := t.s.db.GetContext(ctx, &maxID, "SELECT MAX(id) FROM "+t.spec.name); err != nil {
		return 0, false, fmt.Errorf("max id %s: %w", t.spec.name, err)
	}
	return maxID.Int64, maxID.Valid, nil
}

func (t *table[T, R]) insertError(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("insert %s: %w: %v", t.spec.name, store.ErrConflict, err)
	}
	return fmt.Errorf("insert %s: %w", t.spec.name, err)
}

type accountRow struct {
	ID       int64  `db:"id"`
	Username string `db:"username"`
	Password string `db:"password"`
}

var accountSpec = tableSpec[model.Account, accountRow]{
	name:    "users",
	columns: []string{"id", "username", "password"},
	toRow: func(a model.Account) (accountRow, error) {
		return accountRow{ID: a.ID, Username: a.Username, Password: a.Password}, nil
	},
	fromRow: func(r accountRow) (model.Account, error) {
		return model.Account{ID: r.ID, Username: r.Username, Password: r.Password}, nil
	},
}

// postRow stores an anonymous author (0) as NULL so the author index only
// holds real accounts.
type postRow struct {
	ID       int64         `db:"id"`
	Title    string        `db:"title"`
	Content  string        `db:"content"`
	Author   sql.NullInt64 `db:"author"`
	Date     string        `db:"date"`
	Likes    int64         `db:"likes"`
	LikedBy  string        `db:"liked_by"`
	Comments string        `db:"comments"`
}

var postSpec = tableSpec[model.Post, postRow]{
	name:    "posts",
	columns: []string{"id", "title", "content", "author", "date", "likes", "liked_by", "comments"},
	toRow: func(p model.Post) (postRow, error) {
		p = p.Normalize()
		likedBy, err := marshalColumn(p.LikedBy)
		if err != nil {
			return postRow{}, fmt.Errorf("liked_by: %w", err)
		}
		comments, err := marshalColumn(p.Comments)
		if err != nil {
			return postRow{}, fmt.Errorf("comments: %w", err)
		}
		return postRow{
			ID:       p.ID,
			Title:    p.Title,
			Content:  p.Content,
			Author:   sql.NullInt64{Int64: p.Author, Valid: p.Author != 0},
			Date:     formatTime(p.Date),
			Likes:    p.Likes,
			LikedBy:  likedBy,
			Comments: comments,
		}, nil
	},
	fromRow: func(r postRow) (model.Post, error) {
		p := model.Post{
			ID:      r.ID,
			Title:   r.Title,
			Content: r.Content,
			Author:  r.Author.Int64,
			Likes:   r.Likes,
		}
		var err error
		if p.Date, err = parseTime(r.Date); err != nil {
			return model.Post{}, err
		}
		if err := unmarshalColumn(r.LikedBy, &p.LikedBy); err != nil {
			return model.Post{}, fmt.Errorf("liked_by: %w", err)
		}
		if err := unmarshalColumn(r.Comments, &p.Comments); err != nil {
			return model.Post{}, fmt.Errorf("comments: %w", err)
		}
		p.Comments = normalizeComments(p.Comments)
		return p.Normalize(), nil
	},
}

type chatRow struct {
	ID       int64  `db:"id"`
	Users    string `db:"users"`
	Messages string `db:"messages"`
}

var chatSpec = tableSpec[model.Conversation, chatRow]{
	name:    "chats",
	columns: []string{"id", "users", "messages"},
	toRow: func(c model.Conversation) (chatRow, error) {
		c = c.Normalize()
		users, err := marshalColumn(c.Users)
		if err != nil {
			return chatRow{}, fmt.Errorf("users: %w", err)
		}
		messages, err := marshalColumn(c.Messages)
		if err != nil {
			return chatRow{}, fmt.Errorf("messages: %w", err)
		}
		return chatRow{ID: c.ID, Users: users, Messages: messages}, nil
	},
	fromRow: func(r chatRow) (model.Conversation, error) {
		c := model.Conversation{ID: r.ID}
		if err := unmarshalColumn(r.Users, &c.Users); err != nil {
			return model.Conversation{}, fmt.Errorf("users: %w", err)
		}
		if err := unmarshalColumn(r.Messages, &c.Messages); err != nil {
			return model.Conversation{}, fmt.Errorf("messages: %w", err)
		}
		c.Messages = normalizeMessages(c.Messages)
		return c.Normalize(), nil
	},
}
