package model

import (
	"slices"
	"time"
)

// Account is a registered user. Username is unique across accounts.
type Account struct {
	ID       int64  `json:"id" msgpack:"id"`
	Username string `json:"username" msgpack:"username"`
	Password string `json:"password" msgpack:"password"`
}

func (a Account) Key() int64 { return a.ID }

func (a Account) WithKey(id int64) Account {
	a.ID = id
	return a
}

func (a Account) Clone() Account { return a }

func (a Account) Normalize() Account { return a }

// Comment is a single comment on a post. Author is an account id.
type Comment struct {
	Content string    `json:"content" msgpack:"content"`
	Author  int64     `json:"author" msgpack:"author"`
	Date    time.Time `json:"date" msgpack:"date"`
}

// Post is a blog post. Author is an account id, zero when anonymous.
// LikedBy holds each liking account id at most once.
type Post struct {
	ID       int64     `json:"id" msgpack:"id"`
	Title    string    `json:"title" msgpack:"title"`
	Content  string    `json:"content" msgpack:"content"`
	Author   int64     `json:"author" msgpack:"author"`
	Date     time.Time `json:"date" msgpack:"date"`
	Likes    int64     `json:"likes" msgpack:"likes"`
	LikedBy  []int64   `json:"likedBy" msgpack:"likedBy"`
	Comments []Comment `json:"comments" msgpack:"comments"`
}

func (p Post) Key() int64 { return p.ID }

func (p Post) WithKey(id int64) Post {
	p.ID = id
	return p
}

// Clone returns a copy that shares no slices with p.
func (p Post) Clone() Post {
	p.LikedBy = slices.Clone(p.LikedBy)
	p.Comments = slices.Clone(p.Comments)
	return p.Normalize()
}

// Normalize fills the defaults for optional fields missing from a stored
// document.
func (p Post) Normalize() Post {
	if p.LikedBy == nil {
		p.LikedBy = []int64{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	if p.Likes < 0 {
		p.Likes = 0
	}
	return p
}

// Message is one message inside a conversation.
type Message struct {
	ChatID  int64     `json:"chatID" msgpack:"chatID"`
	From    int64     `json:"from" msgpack:"from"`
	Content string    `json:"content" msgpack:"content"`
	Date    time.Time `json:"date" msgpack:"date"`
}

// Conversation is a chat between a set of accounts.
type Conversation struct {
	ID       int64     `json:"id" msgpack:"id"`
	Users    []int64   `json:"users" msgpack:"users"`
	Messages []Message `json:"messages" msgpack:"messages"`
}

func (c Conversation) Key() int64 { return c.ID }

func (c Conversation) WithKey(id int64) Conversation {
	c.ID = id
	return c
}

// Clone returns a copy that shares no slices with c.
func (c Conversation) Clone() Conversation {
	c.Users = slices.Clone(c.Users)
	c.Messages = slices.Clone(c.Messages)
	return c.Normalize()
}

func (c Conversation) Normalize() Conversation {
	if c.Users == nil {
		c.Users = []int64{}
	}
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	return c
}

// HasUser reports whether userID participates in the conversation.
func (c Conversation) HasUser(userID int64) bool {
	return slices.Contains(c.Users, userID)
}
