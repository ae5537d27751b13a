package blog

import "errors"

var (
	// ErrChatExists is returned by CreateChat when the two accounts already
	// share a two-person chat.
	ErrChatExists = errors.New("chat already exists")

	// ErrUsernameTaken is returned by CreateAccount for a duplicate username.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrUnknownKind is returned for collection names other than users,
	// posts and chats.
	ErrUnknownKind = errors.New("unknown collection")
)
