package store

import (
	"errors"
	"testing"
	"time"

	"space/internal/gateway"
)

func testPost(id, authorID string) *Post {
	return &Post{
		ID:        id,
		Author:    Author{ID: authorID, Username: "u-" + authorID},
		Content:   "content of " + id,
		CreatedAt: time.Now(),
		Comments:  []*Comment{},
		LikerIDs:  map[string]struct{}{},
	}
}

func testComment(id, authorID string) *Comment {
	return &Comment{
		ID:        id,
		Author:    Author{ID: authorID, Username: "u-" + authorID},
		Text:      "text of " + id,
		CreatedAt: time.Now(),
		LikerIDs:  map[string]struct{}{},
	}
}

func TestToggleLikeRoundTrip(t *testing.T) {
	s := New()
	p := testPost("p1", "a1")
	p.LikerIDs["other"] = struct{}{}
	s.ReplaceAll([]*Post{p})

	liked, err := s.ToggleLike("p1", "viewer")
	if err != nil {
		t.Fatalf("ToggleLike returned error: %v", err)
	}
	if !liked {
		t.Error("first toggle: liked = false, want true")
	}

	liked, err = s.ToggleLike("p1", "viewer")
	if err != nil {
		t.Fatalf("ToggleLike returned error: %v", err)
	}
	if liked {
		t.Error("second toggle: liked = true, want false")
	}

	// Two toggles restore the original liker set exactly.
	got, _ := s.Post("p1")
	if len(got.LikerIDs) != 1 {
		t.Errorf("liker set size = %d, want 1", len(got.LikerIDs))
	}
	if _, has := got.LikerIDs["other"]; !has {
		t.Error("pre-existing liker lost after toggle round trip")
	}
}

func TestToggleLikeUnknownPost(t *testing.T) {
	s := New()
	if _, err := s.ToggleLike("missing", "viewer"); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("ToggleLike error = %v, want ErrPostNotFound", err)
	}
}

func TestToggleCommentLike(t *testing.T) {
	s := New()
	p := testPost("p1", "a1")
	p.Comments = []*Comment{testComment("c1", "a2")}
	s.ReplaceAll([]*Post{p})

	liked, err := s.ToggleCommentLike("c1", "viewer")
	if err != nil {
		t.Fatalf("ToggleCommentLike returned error: %v", err)
	}
	if !liked {
		t.Error("liked = false, want true")
	}

	liked, _ = s.ToggleCommentLike("c1", "viewer")
	if liked {
		t.Error("second toggle: liked = true, want false")
	}

	if _, err := s.ToggleCommentLike("missing", "viewer"); !errors.Is(err, ErrCommentNotFound) {
		t.Errorf("ToggleCommentLike error = %v, want ErrCommentNotFound", err)
	}
}

func TestInsertCommentPrepends(t *testing.T) {
	s := New()
	p := testPost("p1", "a1")
	p.Comments = []*Comment{testComment("c1", "a2")}
	s.ReplaceAll([]*Post{p})

	if err := s.InsertComment("p1", testComment("c2", "a3")); err != nil {
		t.Fatalf("InsertComment returned error: %v", err)
	}

	got, _ := s.Post("p1")
	if len(got.Comments) != 2 {
		t.Fatalf("comment count = %d, want 2", len(got.Comments))
	}
	if got.Comments[0].ID != "c2" {
		t.Errorf("newest comment = %q, want %q", got.Comments[0].ID, "c2")
	}
}

func TestReplaceCommentKeepsPosition(t *testing.T) {
	s := New()
	p := testPost("p1", "a1")
	p.Comments = []*Comment{testComment("tmp-1", "a2"), testComment("c1", "a3")}
	s.ReplaceAll([]*Post{p})

	authoritative := testComment("c123", "a2")
	if err := s.ReplaceComment("p1", "tmp-1", authoritative); err != nil {
		t.Fatalf("ReplaceComment returned error: %v", err)
	}

	got, _ := s.Post("p1")
	if len(got.Comments) != 2 {
		t.Fatalf("comment count = %d, want 2", len(got.Comments))
	}
	if got.Comments[0].ID != "c123" {
		t.Errorf("comment at position 0 = %q, want %q", got.Comments[0].ID, "c123")
	}
}

func TestReplaceCommentMissingTempIDIsNoop(t *testing.T) {
	s := New()
	p := testPost("p1", "a1")
	p.Comments = []*Comment{testComment("c1", "a2")}
	s.ReplaceAll([]*Post{p})

	// A refresh may have already swapped the provisional entry out.
	if err := s.ReplaceComment("p1", "tmp-gone", testComment("c2", "a2")); err != nil {
		t.Errorf("ReplaceComment returned error: %v", err)
	}
	got, _ := s.Post("p1")
	if len(got.Comments) != 1 {
		t.Errorf("comment count = %d, want 1", len(got.Comments))
	}
}

func TestRemoveComment(t *testing.T) {
	s := New()
	p := testPost("p1", "a1")
	p.Comments = []*Comment{testComment("c1", "a2"), testComment("c2", "a3")}
	s.ReplaceAll([]*Post{p})

	if err := s.RemoveComment("c1"); err != nil {
		t.Fatalf("RemoveComment returned error: %v", err)
	}
	got, _ := s.Post("p1")
	if len(got.Comments) != 1 || got.Comments[0].ID != "c2" {
		t.Errorf("comments after remove = %v, want just c2", got.Comments)
	}

	if err := s.RemoveComment("c1"); !errors.Is(err, ErrCommentNotFound) {
		t.Errorf("second RemoveComment error = %v, want ErrCommentNotFound", err)
	}
}

func TestInsertAndReplacePost(t *testing.T) {
	s := New()
	s.ReplaceAll([]*Post{testPost("p1", "a1")})

	s.InsertPost(testPost("tmp-1", "me"))
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	snap := s.Snapshot()
	if snap[0].ID != "tmp-1" {
		t.Errorf("newest post = %q, want %q", snap[0].ID, "tmp-1")
	}

	if err := s.ReplacePost("tmp-1", testPost("p2", "me")); err != nil {
		t.Fatalf("ReplacePost returned error: %v", err)
	}
	snap = s.Snapshot()
	if snap[0].ID != "p2" {
		t.Errorf("post at position 0 = %q, want %q", snap[0].ID, "p2")
	}
	if _, ok := s.Post("tmp-1"); ok {
		t.Error("temp post still addressable after replacement")
	}
	if _, ok := s.Post("p2"); !ok {
		t.Error("authoritative post not addressable after replacement")
	}
}

func TestRemovePost(t *testing.T) {
	s := New()
	s.ReplaceAll([]*Post{testPost("p1", "a1"), testPost("p2", "a2")})

	if err := s.RemovePost("p1"); err != nil {
		t.Fatalf("RemovePost returned error: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
	if err := s.RemovePost("p1"); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("second RemovePost error = %v, want ErrPostNotFound", err)
	}
}

func TestPostReturnsDeepCopy(t *testing.T) {
	s := New()
	p := testPost("p1", "a1")
	p.Comments = []*Comment{testComment("c1", "a2")}
	s.ReplaceAll([]*Post{p})

	got, _ := s.Post("p1")
	got.Content = "mutated"
	got.LikerIDs["intruder"] = struct{}{}
	got.Comments[0].Text = "mutated"

	fresh, _ := s.Post("p1")
	if fresh.Content == "mutated" {
		t.Error("mutating a returned post changed the store")
	}
	if _, has := fresh.LikerIDs["intruder"]; has {
		t.Error("mutating a returned liker set changed the store")
	}
	if fresh.Comments[0].Text == "mutated" {
		t.Error("mutating a returned comment changed the store")
	}
}

func TestFeedViewAnnotations(t *testing.T) {
	s := New()
	p := testPost("p1", "a1")
	p.LikerIDs["viewer"] = struct{}{}
	p.LikerIDs["other"] = struct{}{}
	c := testComment("c1", "a2")
	c.LikerIDs["other"] = struct{}{}
	p.Comments = []*Comment{c}
	s.ReplaceAll([]*Post{p, testPost("p2", "a2")})

	following := func(authorID string) bool { return authorID == "a1" }
	feed := s.Feed("viewer", following)
	if len(feed) != 2 {
		t.Fatalf("feed length = %d, want 2", len(feed))
	}

	v := feed[0]
	if v.LikeCount != 2 {
		t.Errorf("LikeCount = %d, want 2", v.LikeCount)
	}
	if v.CommentCount != 1 {
		t.Errorf("CommentCount = %d, want 1", v.CommentCount)
	}
	if !v.IsLiked {
		t.Error("IsLiked = false, want true")
	}
	if !v.IsFollowingAuthor {
		t.Error("IsFollowingAuthor = false, want true")
	}
	if v.Comments[0].IsLiked {
		t.Error("comment IsLiked = true for non-liker viewer")
	}
	if v.Comments[0].LikeCount != 1 {
		t.Errorf("comment LikeCount = %d, want 1", v.Comments[0].LikeCount)
	}

	if feed[1].IsFollowingAuthor {
		t.Error("IsFollowingAuthor = true for unfollowed author")
	}
}

func TestFromWireNormalizes(t *testing.T) {
	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	wire := []gateway.Post{{
		ID:      "p1",
		Author:  gateway.Author{ID: "a1", Username: "alice"},
		Content: "hello",
		Likes: []gateway.LikeRef{
			{ID: "u1", Username: "x"},
			{ID: "u1", Username: "x"},
			{ID: "u2", Username: "y"},
		},
		Comments: []gateway.Comment{
			{ID: "c-old", Author: gateway.Author{ID: "a2"}, Text: "first", CreatedAt: older, Likes: []string{"u1"}},
			{ID: "c-new", Author: gateway.Author{ID: "a3"}, Text: "second", CreatedAt: newer},
		},
	}}

	posts := FromWire(wire)
	if len(posts) != 1 {
		t.Fatalf("post count = %d, want 1", len(posts))
	}
	p := posts[0]

	// Duplicate liker entries collapse into the set.
	if len(p.LikerIDs) != 2 {
		t.Errorf("liker set size = %d, want 2", len(p.LikerIDs))
	}

	// Comments come back newest first regardless of wire order.
	if p.Comments[0].ID != "c-new" {
		t.Errorf("newest comment = %q, want %q", p.Comments[0].ID, "c-new")
	}
	if !p.Comments[1].LikedBy("u1") {
		t.Error("comment liker lost in normalization")
	}
}
