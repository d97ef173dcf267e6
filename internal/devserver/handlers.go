package devserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) loginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	u, ok := s.state.userByEmail(req.Email)
	if !ok || u.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	tok, err := s.IssueToken(u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok})
}

func (s *Server) registerHandler(c *gin.Context) {
	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")
	confirm := c.PostForm("confirmPassword")
	name := c.PostForm("name")

	if username == "" || email == "" || password == "" || name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, email, password and name are required"})
		return
	}
	if password != confirm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "passwords must match"})
		return
	}
	if s.state.emailTaken(email) {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	profileImage := ""
	if file, err := c.FormFile("profileImage"); err == nil {
		profileImage = file.Filename
	}

	u := s.state.AddUser(name, username, email, password, profileImage)
	tok, err := s.IssueToken(u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": tok})
}

func (s *Server) getUserHandler(c *gin.Context) {
	u, ok := s.state.user(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, s.renderProfile(u))
}

func (s *Server) updateUserHandler(c *gin.Context) {
	userID := c.GetString("user_id")
	targetID := c.Param("id")
	if userID != targetID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot edit another user's profile"})
		return
	}

	u, ok := s.state.user(targetID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	s.state.mu.Lock()
	if v := c.PostForm("name"); v != "" {
		u.Name = v
	}
	if v := c.PostForm("username"); v != "" {
		u.Username = v
	}
	if v := c.PostForm("email"); v != "" {
		u.Email = v
	}
	if v := c.PostForm("bio"); v != "" {
		u.Bio = v
	}
	if file, err := c.FormFile("profileImage"); err == nil {
		u.ProfileImage = file.Filename
	}
	s.state.mu.Unlock()

	c.JSON(http.StatusOK, s.renderProfile(u))
}

func (s *Server) getPostsHandler(c *gin.Context) {
	posts := s.state.allPosts()
	out := make([]gin.H, 0, len(posts))
	for _, p := range posts {
		out = append(out, s.renderPost(p))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getUserPostsHandler(c *gin.Context) {
	// Zero posts is an empty list, never an error: the profile view must
	// render a "no posts" state rather than fail.
	posts := s.state.postsByAuthor(c.Param("id"))
	out := make([]gin.H, 0, len(posts))
	for _, p := range posts {
		out = append(out, s.renderPost(p))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createPostHandler(c *gin.Context) {
	userID := c.GetString("user_id")

	content := c.PostForm("content")
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	image := ""
	if file, err := c.FormFile("image"); err == nil {
		image = file.Filename
	}

	p := s.state.AddPost(userID, content, image)
	c.JSON(http.StatusCreated, s.renderPost(p))
}

type contentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (s *Server) updatePostHandler(c *gin.Context) {
	userID := c.GetString("user_id")

	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	p, ok := s.state.post(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	if p.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot edit another user's post"})
		return
	}

	s.state.mu.Lock()
	p.Content = req.Content
	p.UpdatedAt = time.Now().UTC()
	s.state.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "post updated"})
}

func (s *Server) deletePostHandler(c *gin.Context) {
	userID := c.GetString("user_id")

	p, ok := s.state.post(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	if p.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot delete another user's post"})
		return
	}

	s.state.removePost(p.ID)
	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}

func (s *Server) likePostHandler(c *gin.Context) {
	userID := c.GetString("user_id")

	p, ok := s.state.post(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}

	s.state.mu.Lock()
	if _, liked := p.LikerIDs[userID]; liked {
		delete(p.LikerIDs, userID)
	} else {
		p.LikerIDs[userID] = struct{}{}
	}
	s.state.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "like toggled"})
}

type commentRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) createCommentHandler(c *gin.Context) {
	userID := c.GetString("user_id")

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	p, ok := s.state.post(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}

	comment := &Comment{
		ID:        uuid.New().String(),
		AuthorID:  userID,
		Text:      req.Text,
		CreatedAt: time.Now().UTC(),
		LikerIDs:  make(map[string]struct{}),
	}

	s.state.mu.Lock()
	p.Comments = append(p.Comments, comment)
	s.state.mu.Unlock()

	c.JSON(http.StatusCreated, s.renderComment(comment))
}

func (s *Server) updateCommentHandler(c *gin.Context) {
	userID := c.GetString("user_id")

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	_, comment, ok := s.state.findComment(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}
	if comment.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot edit another user's comment"})
		return
	}

	s.state.mu.Lock()
	comment.Text = req.Text
	s.state.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "comment updated"})
}

func (s *Server) deleteCommentHandler(c *gin.Context) {
	userID := c.GetString("user_id")

	_, comment, ok := s.state.findComment(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}
	if comment.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot delete another user's comment"})
		return
	}

	s.state.removeComment(comment.ID)
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}

func (s *Server) likeCommentHandler(c *gin.Context) {
	userID := c.GetString("user_id")

	_, comment, ok := s.state.findComment(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}

	s.state.mu.Lock()
	if _, liked := comment.LikerIDs[userID]; liked {
		delete(comment.LikerIDs, userID)
	} else {
		comment.LikerIDs[userID] = struct{}{}
	}
	s.state.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "like toggled"})
}

func (s *Server) followHandler(c *gin.Context) {
	userID := c.GetString("user_id")
	targetID := c.Param("id")

	if userID == targetID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot follow yourself"})
		return
	}
	if _, ok := s.state.user(targetID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	if !s.state.follow(userID, targetID) {
		c.JSON(http.StatusConflict, gin.H{"error": "already following"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "followed"})
}

func (s *Server) unfollowHandler(c *gin.Context) {
	userID := c.GetString("user_id")
	targetID := c.Param("id")

	if !s.state.unfollow(userID, targetID) {
		c.JSON(http.StatusConflict, gin.H{"error": "not following"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unfollowed"})
}

// renderProfile builds the wire shape of a profile.
func (s *Server) renderProfile(u *User) gin.H {
	return gin.H{
		"_id":          u.ID,
		"name":         u.Name,
		"username":     u.Username,
		"email":        u.Email,
		"profileImage": u.ProfileImage,
		"bio":          u.Bio,
		"followers":    s.state.followersOf(u.ID),
		"following":    s.state.followingOf(u.ID),
	}
}

// renderPost builds the wire shape of a post. Post likes carry usernames;
// comment likes are flat ID lists — the asymmetry the client normalizes.
func (s *Server) renderPost(p *Post) gin.H {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	likes := make([]gin.H, 0, len(p.LikerIDs))
	for id := range p.LikerIDs {
		username := ""
		if u, ok := s.state.users[id]; ok {
			username = u.Username
		}
		likes = append(likes, gin.H{"_id": id, "username": username})
	}

	comments := make([]gin.H, 0, len(p.Comments))
	for _, comment := range p.Comments {
		comments = append(comments, s.renderCommentLocked(comment))
	}

	return gin.H{
		"_id":       p.ID,
		"author":    s.renderAuthorLocked(p.AuthorID),
		"content":   p.Content,
		"image":     p.Image,
		"createdAt": p.CreatedAt,
		"updatedAt": p.UpdatedAt,
		"comments":  comments,
		"likes":     likes,
	}
}

func (s *Server) renderComment(c *Comment) gin.H {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.renderCommentLocked(c)
}

func (s *Server) renderCommentLocked(c *Comment) gin.H {
	likes := make([]string, 0, len(c.LikerIDs))
	for id := range c.LikerIDs {
		likes = append(likes, id)
	}
	return gin.H{
		"_id":       c.ID,
		"author":    s.renderAuthorLocked(c.AuthorID),
		"text":      c.Text,
		"createdAt": c.CreatedAt,
		"likes":     likes,
	}
}

func (s *Server) renderAuthorLocked(userID string) gin.H {
	u, ok := s.state.users[userID]
	if !ok {
		return gin.H{"_id": userID, "username": "", "name": "", "profileImage": ""}
	}
	return gin.H{
		"_id":          u.ID,
		"username":     u.Username,
		"name":         u.Name,
		"profileImage": u.ProfileImage,
	}
}
