package gateway

import "time"

// Author is the embedded author reference on posts and comments.
type Author struct {
	ID           string `json:"_id"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage"`
}

// LikeRef is one entry of a post's liker list.
type LikeRef struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

// Comment is the wire shape of a comment. Comment likes arrive as a flat
// list of user IDs, unlike post likes which carry usernames.
type Comment struct {
	ID        string    `json:"_id"`
	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     []string  `json:"likes"`
}

// Post is the wire shape of a feed or author-page post.
type Post struct {
	ID        string    `json:"_id"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Comments  []Comment `json:"comments"`
	Likes     []LikeRef `json:"likes"`
}

// Profile is the wire shape of a user profile.
type Profile struct {
	ID           string   `json:"_id"`
	Name         string   `json:"name"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	ProfileImage string   `json:"profileImage"`
	Bio          string   `json:"bio"`
	Followers    []string `json:"followers"`
	Following    []string `json:"following"`
}

// RegisterRequest carries the multipart fields of a registration call.
type RegisterRequest struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Name            string
	AvatarName      string
	Avatar          []byte
}

// ProfileUpdate carries the multipart fields of a profile edit. Empty
// fields are omitted from the request.
type ProfileUpdate struct {
	Name       string
	Username   string
	Email      string
	Bio        string
	AvatarName string
	Avatar     []byte
}
