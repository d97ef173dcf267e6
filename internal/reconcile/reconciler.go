// Package reconcile keeps the entity store consistent with an eventually
// confirming remote API. Every mutation follows the same contract: predict
// the new local state, commit it immediately, dispatch one network call,
// then either confirm (swapping provisional data for authoritative data) or
// restore the pre-mutation state exactly.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"space/internal/followcache"
	"space/internal/gateway"
	"space/internal/session"
	"space/internal/store"
)

var (
	// ErrInFlight is returned while a previous mutation on the same
	// target has not settled; the triggering control stays disabled for
	// that window instead of queueing.
	ErrInFlight = errors.New("mutation already in flight")
)

// Gateway is the slice of the backend contract the reconciler dispatches to.
type Gateway interface {
	FetchFeed(ctx context.Context, token string) ([]gateway.Post, error)
	CreatePost(ctx context.Context, token, content, imageName string, image []byte) (*gateway.Post, error)
	UpdatePost(ctx context.Context, token, postID, content string) error
	DeletePost(ctx context.Context, token, postID string) error
	ToggleLikePost(ctx context.Context, token, postID string) error
	CreateComment(ctx context.Context, token, postID, text string) (*gateway.Comment, error)
	UpdateComment(ctx context.Context, token, commentID, text string) error
	DeleteComment(ctx context.Context, token, commentID string) error
	ToggleLikeComment(ctx context.Context, token, commentID string) error
	Follow(ctx context.Context, token, userID string) error
	Unfollow(ctx context.Context, token, userID string) error
}

// Sessions gates mutations on a valid credential and resets the session
// when the backend rejects one.
type Sessions interface {
	Require() (*session.Session, error)
	Invalidate()
}

// Notifier receives the single user-facing message of a failed mutation.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Reconciler applies optimistic mutations against the store and settles
// them against the backend.
type Reconciler struct {
	gw       Gateway
	store    *store.Store
	follows  *followcache.Cache
	sessions Sessions
	notify   Notifier
	log      *slog.Logger

	// onAuthExpired is the redirect to the authentication entry point.
	onAuthExpired func()

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates a reconciler. notify and onAuthExpired may be nil.
func New(gw Gateway, st *store.Store, follows *followcache.Cache, sessions Sessions, notify Notifier, onAuthExpired func(), log *slog.Logger) *Reconciler {
	if notify == nil {
		notify = NotifierFunc(func(string) {})
	}
	if onAuthExpired == nil {
		onAuthExpired = func() {}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		gw:            gw,
		store:         st,
		follows:       follows,
		sessions:      sessions,
		notify:        notify,
		onAuthExpired: onAuthExpired,
		log:           log,
		inflight:      make(map[string]struct{}),
	}
}

// mutation is the parameterization of the optimistic contract. apply runs
// synchronously before run returns; everything else settles asynchronously.
type mutation struct {
	// key serializes mutations on the same target.
	key string
	// apply predicts the new local state and commits it to the store.
	apply func() error
	// dispatch issues the one network call; on success it also performs
	// any provisional-to-authoritative replacement.
	dispatch func(ctx context.Context, token string) error
	// rollback restores the exact pre-mutation state. Nil means the
	// prior value was discarded and a refetch is the rollback.
	rollback func()
	// absorb reconciles local state when the backend reports the
	// requested state already holds. Nil disables absorption.
	absorb func()
	// failMsg is the single user-facing notification on failure.
	failMsg string
}

// run executes the contract. The local commit happens before run returns,
// in call order; the returned channel settles once the network response has
// been reconciled or rolled back.
func (r *Reconciler) run(ctx context.Context, m mutation) <-chan error {
	done := make(chan error, 1)

	sess, err := r.sessions.Require()
	if err != nil {
		// No network call is made on a missing or expired credential;
		// the session resets and the caller is sent to authentication.
		if errors.Is(err, session.ErrExpired) {
			r.sessions.Invalidate()
		}
		r.onAuthExpired()
		done <- err
		return done
	}

	if !r.begin(m.key) {
		done <- ErrInFlight
		return done
	}

	if err := m.apply(); err != nil {
		r.end(m.key)
		done <- err
		return done
	}

	go func() {
		defer r.end(m.key)
		done <- r.settle(ctx, sess, m)
	}()
	return done
}

func (r *Reconciler) settle(ctx context.Context, sess *session.Session, m mutation) error {
	err := m.dispatch(ctx, sess.Token)
	if err == nil {
		return nil
	}

	if m.absorb != nil && gateway.IsConflict(err) {
		// The requested state already holds remotely; keep the local
		// prediction and never surface this to the user.
		m.absorb()
		r.log.Debug("conflict absorbed", "key", m.key)
		return nil
	}

	if gateway.IsAuthExpired(err) {
		// Full-session reset, not a local rollback.
		r.sessions.Invalidate()
		r.onAuthExpired()
		return err
	}

	if m.rollback != nil {
		m.rollback()
	} else if rerr := r.RefreshFeed(ctx); rerr != nil {
		r.log.Warn("rollback refetch failed", "key", m.key, "error", rerr.Error())
	}

	r.log.Warn("mutation rolled back", "key", m.key, "error", err.Error())
	if m.failMsg != "" {
		r.notify.Notify(m.failMsg)
	}
	return err
}

func (r *Reconciler) begin(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[key]; busy {
		return false
	}
	r.inflight[key] = struct{}{}
	return true
}

func (r *Reconciler) end(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, key)
}

// RefreshFeed replaces the whole store from a fresh fetch. Also the
// rollback path for destructive mutations, whose prior value is gone.
func (r *Reconciler) RefreshFeed(ctx context.Context) error {
	tok := ""
	if sess, ok := r.currentSession(); ok {
		tok = sess.Token
	}
	posts, err := r.gw.FetchFeed(ctx, tok)
	if err != nil {
		return fmt.Errorf("refresh feed: %w", err)
	}
	r.store.ReplaceAll(store.FromWire(posts))
	return nil
}

func (r *Reconciler) currentSession() (*session.Session, bool) {
	sess, err := r.sessions.Require()
	if err != nil {
		return nil, false
	}
	return sess, true
}

// LikePost toggles the session user's like on a post. Rollback is the
// inverse toggle.
func (r *Reconciler) LikePost(ctx context.Context, postID string) <-chan error {
	sess, err := r.sessions.Require()
	if err != nil {
		return r.run(ctx, mutation{key: "like:post:" + postID, apply: func() error { return nil }})
	}
	userID := sess.UserID

	return r.run(ctx, mutation{
		key: "like:post:" + postID,
		apply: func() error {
			_, err := r.store.ToggleLike(postID, userID)
			return err
		},
		dispatch: func(ctx context.Context, token string) error {
			return r.gw.ToggleLikePost(ctx, token, postID)
		},
		rollback: func() {
			if _, err := r.store.ToggleLike(postID, userID); err != nil {
				r.log.Warn("like rollback skipped", "post_id", postID, "error", err.Error())
			}
		},
	})
}

// LikeComment toggles the session user's like on a comment.
func (r *Reconciler) LikeComment(ctx context.Context, commentID string) <-chan error {
	sess, err := r.sessions.Require()
	if err != nil {
		return r.run(ctx, mutation{key: "like:comment:" + commentID, apply: func() error { return nil }})
	}
	userID := sess.UserID

	return r.run(ctx, mutation{
		key: "like:comment:" + commentID,
		apply: func() error {
			_, err := r.store.ToggleCommentLike(commentID, userID)
			return err
		},
		dispatch: func(ctx context.Context, token string) error {
			return r.gw.ToggleLikeComment(ctx, token, commentID)
		},
		rollback: func() {
			if _, err := r.store.ToggleCommentLike(commentID, userID); err != nil {
				r.log.Warn("comment like rollback skipped", "comment_id", commentID, "error", err.Error())
			}
		},
	})
}

// AddComment splices a provisional comment into the post immediately; the
// authoritative comment from the backend replaces it by temporary ID.
func (r *Reconciler) AddComment(ctx context.Context, postID, text string) <-chan error {
	sess, err := r.sessions.Require()
	if err != nil {
		return r.run(ctx, mutation{key: "comment:add:" + postID, apply: func() error { return nil }})
	}

	tempID := "tmp-" + uuid.New().String()
	provisional := &store.Comment{
		ID: tempID,
		Author: store.Author{
			ID:        sess.UserID,
			Username:  sess.Username,
			Name:      sess.Name,
			AvatarRef: sess.AvatarRef,
		},
		Text:      text,
		CreatedAt: time.Now(),
		LikerIDs:  map[string]struct{}{},
	}

	return r.run(ctx, mutation{
		key: "comment:add:" + postID,
		apply: func() error {
			return r.store.InsertComment(postID, provisional)
		},
		dispatch: func(ctx context.Context, token string) error {
			created, err := r.gw.CreateComment(ctx, token, postID, text)
			if err != nil {
				return err
			}
			return r.store.ReplaceComment(postID, tempID, store.CommentFromWire(created))
		},
		rollback: func() {
			if err := r.store.RemoveComment(tempID); err != nil {
				r.log.Warn("provisional comment already gone", "temp_id", tempID)
			}
		},
		failMsg: "Failed to add comment. Please try again.",
	})
}

// EditComment replaces a comment's text. The prior text is discarded at
// commit time, so a failed dispatch rolls back by refetching.
func (r *Reconciler) EditComment(ctx context.Context, commentID, text string) <-chan error {
	return r.run(ctx, mutation{
		key: "comment:edit:" + commentID,
		apply: func() error {
			return r.store.SetCommentText(commentID, text)
		},
		dispatch: func(ctx context.Context, token string) error {
			return r.gw.UpdateComment(ctx, token, commentID, text)
		},
		failMsg: "Failed to update comment. Please try again.",
	})
}

// DeleteComment removes a comment immediately; a failed dispatch restores
// it by refetching.
func (r *Reconciler) DeleteComment(ctx context.Context, commentID string) <-chan error {
	return r.run(ctx, mutation{
		key: "comment:delete:" + commentID,
		apply: func() error {
			return r.store.RemoveComment(commentID)
		},
		dispatch: func(ctx context.Context, token string) error {
			return r.gw.DeleteComment(ctx, token, commentID)
		},
		failMsg: "Failed to delete comment. Please try again.",
	})
}

// CreatePost prepends a provisional post to the feed; the authoritative
// post replaces it by temporary ID.
func (r *Reconciler) CreatePost(ctx context.Context, content, imageName string, image []byte) <-chan error {
	sess, err := r.sessions.Require()
	if err != nil {
		return r.run(ctx, mutation{key: "post:create", apply: func() error { return nil }})
	}

	tempID := "tmp-" + uuid.New().String()
	provisional := &store.Post{
		ID: tempID,
		Author: store.Author{
			ID:        sess.UserID,
			Username:  sess.Username,
			Name:      sess.Name,
			AvatarRef: sess.AvatarRef,
		},
		Content:   content,
		CreatedAt: time.Now(),
		Comments:  []*store.Comment{},
		LikerIDs:  map[string]struct{}{},
	}

	return r.run(ctx, mutation{
		key: "post:create",
		apply: func() error {
			r.store.InsertPost(provisional)
			return nil
		},
		dispatch: func(ctx context.Context, token string) error {
			created, err := r.gw.CreatePost(ctx, token, content, imageName, image)
			if err != nil {
				return err
			}
			return r.store.ReplacePost(tempID, store.FromWire([]gateway.Post{*created})[0])
		},
		rollback: func() {
			if err := r.store.RemovePost(tempID); err != nil {
				r.log.Warn("provisional post already gone", "temp_id", tempID)
			}
		},
		failMsg: "Failed to publish post. Please try again.",
	})
}

// EditPost replaces a post's content; refetch on failure.
func (r *Reconciler) EditPost(ctx context.Context, postID, content string) <-chan error {
	return r.run(ctx, mutation{
		key: "post:edit:" + postID,
		apply: func() error {
			return r.store.SetPostContent(postID, content)
		},
		dispatch: func(ctx context.Context, token string) error {
			return r.gw.UpdatePost(ctx, token, postID, content)
		},
		failMsg: "Failed to update post. Please try again.",
	})
}

// DeletePost removes a post (and its comments) immediately; refetch on
// failure.
func (r *Reconciler) DeletePost(ctx context.Context, postID string) <-chan error {
	return r.run(ctx, mutation{
		key: "post:delete:" + postID,
		apply: func() error {
			return r.store.RemovePost(postID)
		},
		dispatch: func(ctx context.Context, token string) error {
			return r.gw.DeletePost(ctx, token, postID)
		},
		failMsg: "Failed to delete post. Please try again.",
	})
}

// Follow records the edge in the follow cache immediately. An "already
// following" conflict from the backend is absorbed: the cache keeps the
// edge and no error reaches the user.
func (r *Reconciler) Follow(ctx context.Context, userID string) <-chan error {
	return r.run(ctx, mutation{
		key: "follow:" + userID,
		apply: func() error {
			return r.follows.Add(userID)
		},
		dispatch: func(ctx context.Context, token string) error {
			return r.gw.Follow(ctx, token, userID)
		},
		rollback: func() {
			if err := r.follows.Remove(userID); err != nil {
				r.log.Warn("follow rollback failed", "user_id", userID, "error", err.Error())
			}
		},
		absorb: func() {
			if err := r.follows.Add(userID); err != nil {
				r.log.Warn("follow cache reconcile failed", "user_id", userID, "error", err.Error())
			}
		},
		failMsg: "Failed to follow user. Please try again.",
	})
}

// Unfollow removes the edge from the follow cache immediately; a "not
// following" conflict is absorbed the same way.
func (r *Reconciler) Unfollow(ctx context.Context, userID string) <-chan error {
	return r.run(ctx, mutation{
		key: "follow:" + userID,
		apply: func() error {
			return r.follows.Remove(userID)
		},
		dispatch: func(ctx context.Context, token string) error {
			return r.gw.Unfollow(ctx, token, userID)
		},
		rollback: func() {
			if err := r.follows.Add(userID); err != nil {
				r.log.Warn("unfollow rollback failed", "user_id", userID, "error", err.Error())
			}
		},
		absorb: func() {
			if err := r.follows.Remove(userID); err != nil {
				r.log.Warn("follow cache reconcile failed", "user_id", userID, "error", err.Error())
			}
		},
		failMsg: "Failed to unfollow user. Please try again.",
	})
}
