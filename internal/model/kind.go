package model

import "fmt"

// Kind names an entity collection. The same name keys the collection's
// counter.
type Kind string

const (
	KindUsers Kind = "users"
	KindPosts Kind = "posts"
	KindChats Kind = "chats"
)

// Kinds lists every entity collection in bootstrap order.
var Kinds = []Kind{KindUsers, KindPosts, KindChats}

// ParseKind validates a collection name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q: must be one of %v", s, Kinds)
}

func (k Kind) String() string { return string(k) }
