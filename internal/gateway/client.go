// Package gateway is the client's only path to the backend API. It fixes a
// single versioned route contract and decodes every error payload exactly
// once, into a closed set of kinds the reconciler can act on.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// New creates a gateway client for the given API base URL (including the
// /api prefix).
func New(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}

	var out struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &Error{Kind: KindUnknown, Message: "login response carried no token"}
	}
	return out.Token, nil
}

// Register creates an account and returns a bearer token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	fields := map[string]string{
		"username":        req.Username,
		"email":           req.Email,
		"password":        req.Password,
		"confirmPassword": req.ConfirmPassword,
		"name":            req.Name,
	}

	var out struct {
		Token string `json:"token"`
	}
	err := c.doMultipart(ctx, http.MethodPost, "/auth/register", "", fields, "profileImage", req.AvatarName, req.Avatar, &out)
	if err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &Error{Kind: KindUnknown, Message: "register response carried no token"}
	}
	return out.Token, nil
}

// FetchProfile retrieves a user's profile snapshot. The token is optional;
// anonymous callers still see public profiles.
func (c *Client) FetchProfile(ctx context.Context, userID, token string) (*Profile, error) {
	var out Profile
	if err := c.doJSON(ctx, http.MethodGet, "/user/"+url.PathEscape(userID), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile edits profile fields and returns the updated snapshot.
func (c *Client) UpdateProfile(ctx context.Context, token, userID string, upd ProfileUpdate) (*Profile, error) {
	fields := map[string]string{}
	if upd.Name != "" {
		fields["name"] = upd.Name
	}
	if upd.Username != "" {
		fields["username"] = upd.Username
	}
	if upd.Email != "" {
		fields["email"] = upd.Email
	}
	if upd.Bio != "" {
		fields["bio"] = upd.Bio
	}

	var out Profile
	err := c.doMultipart(ctx, http.MethodPut, "/user/"+url.PathEscape(userID), token, fields, "profileImage", upd.AvatarName, upd.Avatar, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchFeed retrieves the full post feed, newest first.
func (c *Client) FetchFeed(ctx context.Context, token string) ([]Post, error) {
	var out []Post
	if err := c.doJSON(ctx, http.MethodGet, "/posts", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchAuthorPosts retrieves one author's posts, newest first. A user with
// zero posts yields an empty list, never an error; a backend that answers
// 404 for an empty author page is treated the same way.
func (c *Client) FetchAuthorPosts(ctx context.Context, userID, token string) ([]Post, error) {
	var out []Post
	err := c.doJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/posts", token, nil, &out)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return []Post{}, nil
		}
		return nil, err
	}
	if out == nil {
		out = []Post{}
	}
	return out, nil
}

// CreatePost publishes a post, optionally with one image, and returns the
// authoritative post including its server-assigned ID.
func (c *Client) CreatePost(ctx context.Context, token, content, imageName string, image []byte) (*Post, error) {
	fields := map[string]string{"content": content}

	var out Post
	if err := c.doMultipart(ctx, http.MethodPost, "/posts", token, fields, "image", imageName, image, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePost replaces a post's content.
func (c *Client) UpdatePost(ctx context.Context, token, postID, content string) error {
	return c.doJSON(ctx, http.MethodPut, "/posts/"+url.PathEscape(postID), token, map[string]string{"content": content}, nil)
}

// DeletePost removes a post and all its comments.
func (c *Client) DeletePost(ctx context.Context, token, postID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/posts/"+url.PathEscape(postID), token, nil, nil)
}

// ToggleLikePost flips the caller's like on a post.
func (c *Client) ToggleLikePost(ctx context.Context, token, postID string) error {
	return c.doJSON(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/like", token, struct{}{}, nil)
}

// CreateComment adds a comment and returns the authoritative comment with
// its server-assigned ID, used to replace the provisional entry.
func (c *Client) CreateComment(ctx context.Context, token, postID, text string) (*Comment, error) {
	var out Comment
	err := c.doJSON(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/comments", token, map[string]string{"text": text}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateComment replaces a comment's text.
func (c *Client) UpdateComment(ctx context.Context, token, commentID, text string) error {
	return c.doJSON(ctx, http.MethodPut, "/comments/"+url.PathEscape(commentID), token, map[string]string{"text": text}, nil)
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(ctx context.Context, token, commentID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/comments/"+url.PathEscape(commentID), token, nil, nil)
}

// ToggleLikeComment flips the caller's like on a comment.
func (c *Client) ToggleLikeComment(ctx context.Context, token, commentID string) error {
	return c.doJSON(ctx, http.MethodPost, "/comments/"+url.PathEscape(commentID)+"/like", token, struct{}{}, nil)
}

// Follow creates a follow edge to userID. A backend answer of "already
// following" surfaces as KindConflict for the reconciler to absorb.
func (c *Client) Follow(ctx context.Context, token, userID string) error {
	return c.doJSON(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/follow", token, struct{}{}, nil)
}

// Unfollow removes a follow edge to userID. "not following" surfaces as
// KindConflict.
func (c *Client) Unfollow(ctx context.Context, token, userID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID)+"/follow", token, nil, nil)
}

// doJSON issues a request with an optional JSON body and decodes a JSON
// response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, token, out)
}

// doMultipart issues a multipart/form-data request with string fields and an
// optional file part, decoding a JSON response into out when out is non-nil.
func (c *Client) doMultipart(ctx context.Context, method, path, token string, fields map[string]string, fileField, fileName string, file []byte, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("encode form field %s: %w", k, err)
		}
	}
	if len(file) > 0 {
		if fileName == "" {
			fileName = "upload"
		}
		part, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			return fmt.Errorf("encode form file: %w", err)
		}
		if _, err := part.Write(file); err != nil {
			return fmt.Errorf("encode form file: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.send(req, token, out)
}

// send attaches the bearer token, executes the request and classifies the
// outcome. Transport failures become KindNetwork; non-2xx statuses are
// decoded by decodeError.
func (c *Client) send(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed before response",
			"method", req.Method,
			"path", req.URL.Path,
			"error", err.Error(),
		)
		return netError(err)
	}
	defer resp.Body.Close()

	c.log.Debug("request completed",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"latency_ms", float64(time.Since(start).Milliseconds()),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindUnknown, Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}
