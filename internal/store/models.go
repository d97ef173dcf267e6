package store

import (
	"sort"
	"time"

	"space/internal/gateway"
)

// Author identifies the writer of a post or comment.
type Author struct {
	ID        string
	Username  string
	Name      string
	AvatarRef string
}

// Comment is a post's nested comment. LikerIDs is a set; IsLiked for any
// viewer is derived from membership, never stored.
type Comment struct {
	ID        string
	Author    Author
	Text      string
	CreatedAt time.Time
	LikerIDs  map[string]struct{}
}

// Post is a feed entry. Comments are ordered newest first; LikerIDs is a
// set with no duplicates.
type Post struct {
	ID        string
	Author    Author
	Content   string
	ImageRef  string
	CreatedAt time.Time
	Comments  []*Comment
	LikerIDs  map[string]struct{}
}

// CommentView is a comment annotated for one viewer.
type CommentView struct {
	Comment
	LikeCount int
	IsLiked   bool
}

// PostView is a post annotated for one viewer.
type PostView struct {
	Post
	LikeCount         int
	CommentCount      int
	IsLiked           bool
	IsFollowingAuthor bool
	Comments          []CommentView
}

// FromWire normalizes backend payloads into domain posts: liker lists are
// collapsed into sets and comments sorted newest first.
func FromWire(posts []gateway.Post) []*Post {
	out := make([]*Post, 0, len(posts))
	for i := range posts {
		out = append(out, postFromWire(&posts[i]))
	}
	return out
}

func postFromWire(p *gateway.Post) *Post {
	post := &Post{
		ID:        p.ID,
		Author:    authorFromWire(p.Author),
		Content:   p.Content,
		ImageRef:  p.Image,
		CreatedAt: p.CreatedAt,
		LikerIDs:  make(map[string]struct{}, len(p.Likes)),
	}
	for _, like := range p.Likes {
		post.LikerIDs[like.ID] = struct{}{}
	}

	post.Comments = make([]*Comment, 0, len(p.Comments))
	for i := range p.Comments {
		post.Comments = append(post.Comments, CommentFromWire(&p.Comments[i]))
	}
	sort.SliceStable(post.Comments, func(i, j int) bool {
		return post.Comments[i].CreatedAt.After(post.Comments[j].CreatedAt)
	})

	return post
}

// CommentFromWire normalizes one backend comment payload.
func CommentFromWire(c *gateway.Comment) *Comment {
	comment := &Comment{
		ID:        c.ID,
		Author:    authorFromWire(c.Author),
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
		LikerIDs:  make(map[string]struct{}, len(c.Likes)),
	}
	for _, id := range c.Likes {
		comment.LikerIDs[id] = struct{}{}
	}
	return comment
}

func authorFromWire(a gateway.Author) Author {
	return Author{
		ID:        a.ID,
		Username:  a.Username,
		Name:      a.Name,
		AvatarRef: a.ProfileImage,
	}
}

// LikedBy reports whether userID is in the post's liker set.
func (p *Post) LikedBy(userID string) bool {
	_, ok := p.LikerIDs[userID]
	return ok
}

// LikedBy reports whether userID is in the comment's liker set.
func (c *Comment) LikedBy(userID string) bool {
	_, ok := c.LikerIDs[userID]
	return ok
}

func clonePost(p *Post) *Post {
	cp := &Post{
		ID:        p.ID,
		Author:    p.Author,
		Content:   p.Content,
		ImageRef:  p.ImageRef,
		CreatedAt: p.CreatedAt,
		LikerIDs:  make(map[string]struct{}, len(p.LikerIDs)),
		Comments:  make([]*Comment, 0, len(p.Comments)),
	}
	for id := range p.LikerIDs {
		cp.LikerIDs[id] = struct{}{}
	}
	for _, c := range p.Comments {
		cp.Comments = append(cp.Comments, cloneComment(c))
	}
	return cp
}

func cloneComment(c *Comment) *Comment {
	cc := &Comment{
		ID:        c.ID,
		Author:    c.Author,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
		LikerIDs:  make(map[string]struct{}, len(c.LikerIDs)),
	}
	for id := range c.LikerIDs {
		cc.LikerIDs[id] = struct{}{}
	}
	return cc
}
