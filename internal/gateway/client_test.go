package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New(srv.URL, 5*time.Second, nil), srv
}

func TestLogin(t *testing.T) {
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("got %s %s, want POST /auth/login", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["email"] != "a@example.com" || body["password"] != "pw" {
			t.Errorf("request body = %v", body)
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
	}))
	defer srv.Close()

	tok, err := c.Login(context.Background(), "a@example.com", "pw")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if tok != "tok-1" {
		t.Errorf("token = %q, want %q", tok, "tok-1")
	}
}

func TestLoginMissingToken(t *testing.T) {
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	if _, err := c.Login(context.Background(), "a@example.com", "pw"); err == nil {
		t.Fatal("Login accepted a response with no token")
	}
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"unauthorized"}`, KindAuthExpired},
		{"conflict", http.StatusConflict, `{"error":"already following"}`, KindConflict},
		{"bad request", http.StatusBadRequest, `{"error":"content required"}`, KindValidation},
		{"unprocessable", http.StatusUnprocessableEntity, `{"error":"bad payload"}`, KindValidation},
		{"not found", http.StatusNotFound, `{"error":"no such post"}`, KindNotFound},
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, KindUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := c.ToggleLikePost(context.Background(), "tok", "p1")
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := KindOf(err); got != tc.want {
				t.Errorf("KindOf = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestErrorMessageShapes(t *testing.T) {
	// The backend answers sometimes with "error", sometimes "message".
	cases := []struct {
		name string
		body string
		want string
	}{
		{"error key", `{"error":"already following"}`, "already following"},
		{"message key", `{"message":"already following"}`, "already following"},
		{"no body", ``, http.StatusText(http.StatusConflict)},
		{"junk body", `<html>`, http.StatusText(http.StatusConflict)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := c.Follow(context.Background(), "tok", "u1")
			var ge *Error
			if !errors.As(err, &ge) {
				t.Fatalf("error is not a gateway error: %v", err)
			}
			if ge.Message != tc.want {
				t.Errorf("Message = %q, want %q", ge.Message, tc.want)
			}
		})
	}
}

func TestNetworkErrorKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	c := New(srv.URL, time.Second, nil)
	err := c.ToggleLikePost(context.Background(), "tok", "p1")
	if got := KindOf(err); got != KindNetwork {
		t.Errorf("KindOf = %v, want KindNetwork", got)
	}
}

func TestBearerHeader(t *testing.T) {
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer tok-1")
		}
		json.NewEncoder(w).Encode([]Post{})
	}))
	defer srv.Close()

	if _, err := c.FetchFeed(context.Background(), "tok-1"); err != nil {
		t.Fatalf("FetchFeed returned error: %v", err)
	}
}

func TestFetchAuthorPostsEmptyDegradation(t *testing.T) {
	t.Run("404", func(t *testing.T) {
		c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"no posts"}`))
		}))
		defer srv.Close()

		posts, err := c.FetchAuthorPosts(context.Background(), "u1", "tok")
		if err != nil {
			t.Fatalf("FetchAuthorPosts returned error: %v", err)
		}
		if posts == nil || len(posts) != 0 {
			t.Errorf("posts = %v, want empty non-nil list", posts)
		}
	})

	t.Run("null body", func(t *testing.T) {
		c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`null`))
		}))
		defer srv.Close()

		posts, err := c.FetchAuthorPosts(context.Background(), "u1", "tok")
		if err != nil {
			t.Fatalf("FetchAuthorPosts returned error: %v", err)
		}
		if posts == nil {
			t.Error("posts = nil, want empty list")
		}
	})
}

func TestCreateComment(t *testing.T) {
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/posts/p1/comments" {
			t.Errorf("path = %q, want /posts/p1/comments", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "hello" {
			t.Errorf("text = %q, want %q", body["text"], "hello")
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Comment{ID: "c123", Text: "hello"})
	}))
	defer srv.Close()

	created, err := c.CreateComment(context.Background(), "tok", "p1", "hello")
	if err != nil {
		t.Fatalf("CreateComment returned error: %v", err)
	}
	if created.ID != "c123" {
		t.Errorf("comment ID = %q, want %q", created.ID, "c123")
	}
}

func TestCreatePostMultipart(t *testing.T) {
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("content"); got != "hello world" {
			t.Errorf("content = %q, want %q", got, "hello world")
		}
		f, header, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		if header.Filename != "pic.png" {
			t.Errorf("filename = %q, want %q", header.Filename, "pic.png")
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Post{ID: "p9", Content: "hello world"})
	}))
	defer srv.Close()

	created, err := c.CreatePost(context.Background(), "tok", "hello world", "pic.png", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("CreatePost returned error: %v", err)
	}
	if created.ID != "p9" {
		t.Errorf("post ID = %q, want %q", created.ID, "p9")
	}
}
