// Package store holds the canonical in-memory collection of posts the
// client renders from. All mutation goes through methods that hold the
// store lock for the full write, so a refresh or an optimistic edit is
// never observable half-applied.
package store

import (
	"errors"
	"sync"
)

var (
	// ErrPostNotFound is returned when a post ID is not in the store
	ErrPostNotFound = errors.New("post not found")
	// ErrCommentNotFound is returned when a comment ID is not in the store
	ErrCommentNotFound = errors.New("comment not found")
)

// Store is the entity store. The zero value is not usable; call New.
type Store struct {
	mu    sync.RWMutex
	posts []*Post
	byID  map[string]*Post
}

// New creates an empty store.
func New() *Store {
	return &Store{byID: make(map[string]*Post)}
}

// ReplaceAll swaps the whole collection atomically; readers see either the
// old feed or the new one, never a mix.
func (s *Store) ReplaceAll(posts []*Post) {
	byID := make(map[string]*Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = posts
	s.byID = byID
}

// Len returns the number of posts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}

// Post returns a deep copy of one post.
func (s *Store) Post(postID string) (*Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[postID]
	if !ok {
		return nil, false
	}
	return clonePost(p), true
}

// Snapshot returns deep copies of all posts in feed order.
func (s *Store) Snapshot() []*Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, clonePost(p))
	}
	return out
}

// Feed returns the viewer-annotated feed. following answers whether the
// viewer follows a given author; it is consulted per post so the follow
// cache stays the single source for that relation.
func (s *Store) Feed(viewerID string, following func(authorID string) bool) []PostView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PostView, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, s.viewLocked(p, viewerID, following))
	}
	return out
}

// View returns one viewer-annotated post.
func (s *Store) View(postID, viewerID string, following func(authorID string) bool) (PostView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[postID]
	if !ok {
		return PostView{}, false
	}
	return s.viewLocked(p, viewerID, following), true
}

func (s *Store) viewLocked(p *Post, viewerID string, following func(string) bool) PostView {
	view := PostView{
		Post:         *clonePost(p),
		LikeCount:    len(p.LikerIDs),
		CommentCount: len(p.Comments),
		IsLiked:      p.LikedBy(viewerID),
	}
	if following != nil {
		view.IsFollowingAuthor = following(p.Author.ID)
	}
	view.Comments = make([]CommentView, 0, len(p.Comments))
	for _, c := range p.Comments {
		view.Comments = append(view.Comments, CommentView{
			Comment:   *cloneComment(c),
			LikeCount: len(c.LikerIDs),
			IsLiked:   c.LikedBy(viewerID),
		})
	}
	return view
}

// ToggleLike flips userID's membership in the post's liker set and reports
// the resulting state. Calling it twice restores the original state, which
// is exactly the rollback for a failed like dispatch.
func (s *Store) ToggleLike(postID, userID string) (liked bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[postID]
	if !ok {
		return false, ErrPostNotFound
	}
	if _, has := p.LikerIDs[userID]; has {
		delete(p.LikerIDs, userID)
		return false, nil
	}
	p.LikerIDs[userID] = struct{}{}
	return true, nil
}

// ToggleCommentLike flips userID's membership in a comment's liker set.
func (s *Store) ToggleCommentLike(commentID, userID string) (liked bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findCommentLocked(commentID)
	if c == nil {
		return false, ErrCommentNotFound
	}
	if _, has := c.LikerIDs[userID]; has {
		delete(c.LikerIDs, userID)
		return false, nil
	}
	c.LikerIDs[userID] = struct{}{}
	return true, nil
}

// InsertComment prepends a comment to a post (comments render newest
// first). Used both for provisional entries and authoritative ones.
func (s *Store) InsertComment(postID string, c *Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[postID]
	if !ok {
		return ErrPostNotFound
	}
	p.Comments = append([]*Comment{cloneComment(c)}, p.Comments...)
	return nil
}

// ReplaceComment swaps the comment with tempID for the authoritative one,
// keeping its position. Missing tempID is not an error: a refresh may have
// already replaced the provisional entry.
func (s *Store) ReplaceComment(postID, tempID string, c *Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[postID]
	if !ok {
		return ErrPostNotFound
	}
	for i, existing := range p.Comments {
		if existing.ID == tempID {
			p.Comments[i] = cloneComment(c)
			return nil
		}
	}
	return nil
}

// RemoveComment deletes a comment wherever it lives. Used both for the
// optimistic delete and for rolling back a failed add (by temp ID).
func (s *Store) RemoveComment(commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		for i, c := range p.Comments {
			if c.ID == commentID {
				p.Comments = append(p.Comments[:i], p.Comments[i+1:]...)
				return nil
			}
		}
	}
	return ErrCommentNotFound
}

// SetCommentText replaces a comment's text.
func (s *Store) SetCommentText(commentID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findCommentLocked(commentID)
	if c == nil {
		return ErrCommentNotFound
	}
	c.Text = text
	return nil
}

// InsertPost prepends a post to the feed.
func (s *Store) InsertPost(p *Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clonePost(p)
	s.posts = append([]*Post{cp}, s.posts...)
	s.byID[cp.ID] = cp
}

// ReplacePost swaps the post with tempID for the authoritative one, keeping
// its feed position.
func (s *Store) ReplacePost(tempID string, p *Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byID[tempID]
	if !ok {
		return ErrPostNotFound
	}
	cp := clonePost(p)
	for i, existing := range s.posts {
		if existing == old {
			s.posts[i] = cp
			break
		}
	}
	delete(s.byID, tempID)
	s.byID[cp.ID] = cp
	return nil
}

// SetPostContent replaces a post's content.
func (s *Store) SetPostContent(postID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[postID]
	if !ok {
		return ErrPostNotFound
	}
	p.Content = content
	return nil
}

// RemovePost deletes a post and, with it, all its comments.
func (s *Store) RemovePost(postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[postID]
	if !ok {
		return ErrPostNotFound
	}
	for i, existing := range s.posts {
		if existing == p {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			break
		}
	}
	delete(s.byID, postID)
	return nil
}

// FindCommentPost returns the ID of the post owning commentID.
func (s *Store) FindCommentPost(commentID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.posts {
		for _, c := range p.Comments {
			if c.ID == commentID {
				return p.ID, true
			}
		}
	}
	return "", false
}

func (s *Store) findCommentLocked(commentID string) *Comment {
	for _, p := range s.posts {
		for _, c := range p.Comments {
			if c.ID == commentID {
				return c
			}
		}
	}
	return nil
}
