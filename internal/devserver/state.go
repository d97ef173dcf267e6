package devserver

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// User is a registered account.
type User struct {
	ID           string
	Name         string
	Username     string
	Email        string
	Password     string
	ProfileImage string
	Bio          string
}

// Comment belongs to exactly one post and dies with it.
type Comment struct {
	ID        string
	AuthorID  string
	Text      string
	CreatedAt time.Time
	LikerIDs  map[string]struct{}
}

// Post is a stored post with nested comments and a liker set.
type Post struct {
	ID        string
	AuthorID  string
	Content   string
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Comments  []*Comment
	LikerIDs  map[string]struct{}
}

// State is the in-memory dataset behind the dev server. It mirrors what the
// production backend persists, just without the persistence.
type State struct {
	mu      sync.RWMutex
	users   map[string]*User
	byEmail map[string]*User
	posts   []*Post
	follows map[string]map[string]struct{} // followerID -> followeeIDs
}

// NewState creates an empty dataset.
func NewState() *State {
	return &State{
		users:   make(map[string]*User),
		byEmail: make(map[string]*User),
		follows: make(map[string]map[string]struct{}),
	}
}

// AddUser registers a user and returns it.
func (s *State) AddUser(name, username, email, password, profileImage string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{
		ID:           uuid.New().String(),
		Name:         name,
		Username:     username,
		Email:        email,
		Password:     password,
		ProfileImage: profileImage,
	}
	s.users[u.ID] = u
	s.byEmail[u.Email] = u
	return u
}

func (s *State) userByEmail(email string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byEmail[email]
	return u, ok
}

func (s *State) user(id string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

func (s *State) emailTaken(email string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[email]
	return ok
}

// AddPost stores a post and returns it.
func (s *State) AddPost(authorID, content, image string) *Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	p := &Post{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Content:   content,
		Image:     image,
		CreatedAt: now,
		UpdatedAt: now,
		Comments:  []*Comment{},
		LikerIDs:  make(map[string]struct{}),
	}
	s.posts = append(s.posts, p)
	return p
}

func (s *State) post(id string) (*Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.posts {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (s *State) allPosts() []*Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Post, len(s.posts))
	copy(out, s.posts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *State) postsByAuthor(authorID string) []*Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*Post{}
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *State) removePost(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.posts {
		if p.ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			return true
		}
	}
	return false
}

func (s *State) findComment(commentID string) (*Post, *Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.posts {
		for _, c := range p.Comments {
			if c.ID == commentID {
				return p, c, true
			}
		}
	}
	return nil, nil, false
}

func (s *State) removeComment(commentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		for i, c := range p.Comments {
			if c.ID == commentID {
				p.Comments = append(p.Comments[:i], p.Comments[i+1:]...)
				return true
			}
		}
	}
	return false
}

// follow returns false when the edge already exists.
func (s *State) follow(followerID, followeeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.follows[followerID]
	if !ok {
		set = make(map[string]struct{})
		s.follows[followerID] = set
	}
	if _, exists := set[followeeID]; exists {
		return false
	}
	set[followeeID] = struct{}{}
	return true
}

// unfollow returns false when the edge does not exist.
func (s *State) unfollow(followerID, followeeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.follows[followerID]
	if !ok {
		return false
	}
	if _, exists := set[followeeID]; !exists {
		return false
	}
	delete(set, followeeID)
	return true
}

func (s *State) followersOf(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []string{}
	for follower, set := range s.follows {
		if _, ok := set[userID]; ok {
			out = append(out, follower)
		}
	}
	sort.Strings(out)
	return out
}

func (s *State) followingOf(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []string{}
	for followee := range s.follows[userID] {
		out = append(out, followee)
	}
	sort.Strings(out)
	return out
}
