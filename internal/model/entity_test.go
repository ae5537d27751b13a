package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostNormalize_FillsDefaults(t *testing.T) {
	p := Post{ID: 1, Likes: -3}.Normalize()

	assert.Equal(t, int64(0), p.Likes)
	assert.NotNil(t, p.LikedBy)
	assert.NotNil(t, p.Comments)
	assert.Empty(t, p.LikedBy)
	assert.Empty(t, p.Comments)
}

func TestPostClone_DoesNotShareSlices(t *testing.T) {
	orig := Post{
		ID:       1,
		LikedBy:  []int64{5},
		Comments: []Comment{{Content: "hi", Author: 5, Date: time.Unix(0, 0).UTC()}},
	}

	cp := orig.Clone()
	cp.LikedBy[0] = 9
	cp.Comments[0].Content = "changed"

	assert.Equal(t, int64(5), orig.LikedBy[0])
	assert.Equal(t, "hi", orig.Comments[0].Content)
}

func TestConversationClone_DoesNotShareSlices(t *testing.T) {
	orig := Conversation{ID: 1, Users: []int64{1, 2}}

	cp := orig.Clone()
	cp.Users = append(cp.Users[:0], 7)

	assert.Equal(t, []int64{1, 2}, orig.Users)
	assert.NotNil(t, cp.Messages)
}

func TestConversationHasUser(t *testing.T) {
	c := Conversation{Users: []int64{5, 6}}
	assert.True(t, c.HasUser(6))
	assert.False(t, c.HasUser(7))
}

func TestWithKey(t *testing.T) {
	assert.Equal(t, int64(4), Account{}.WithKey(4).Key())
	assert.Equal(t, int64(4), Post{}.WithKey(4).Key())
	assert.Equal(t, int64(4), Conversation{}.WithKey(4).Key())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("posts")
	require.NoError(t, err)
	assert.Equal(t, KindPosts, k)

	_, err = ParseKind("comments")
	assert.Error(t, err)
}
