package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"space/internal/config"
	"space/internal/followcache"
	"space/internal/gateway"
	"space/internal/localstore"
	"space/internal/logger"
	"space/internal/reconcile"
	"space/internal/session"
	"space/internal/store"
)

// app wires the client components together for one command invocation.
type app struct {
	cfg      *config.Client
	log      *slog.Logger
	local    localstore.Store
	gw       *gateway.Client
	sessions *session.Manager
	store    *store.Store
	follows  *followcache.Cache
	rec      *reconcile.Reconciler
}

func newApp(ctx context.Context) (*app, error) {
	log := logger.New()
	logger.SetDefault(log)

	cfg := config.LoadClientFromEnv()

	local, err := localstore.Open(cfg.StateDir)
	if err != nil {
		return nil, err
	}

	gw := gateway.New(cfg.BaseURL, cfg.HTTPTimeout, log)
	sessions := session.NewManager(local, gw, log)

	if err := sessions.Load(ctx); err != nil {
		// A transient profile-fetch failure leaves the session
		// anonymous for this invocation; reads still work.
		log.Warn("session load incomplete", "error", err.Error())
	}

	follows, err := followcache.Load(local)
	if err != nil {
		local.Close()
		return nil, err
	}

	// A fresh device has a session but no cache; seed it from the
	// load-time profile snapshot so IsFollowingAuthor starts out
	// consistent without a second fetch.
	if sess, ok := sessions.Current(); ok && len(follows.All()) == 0 && len(sess.Following) > 0 {
		if err := follows.ReplaceAll(sess.Following); err != nil {
			log.Warn("failed to seed follow cache", "error", err.Error())
		}
	}

	st := store.New()

	notify := reconcile.NotifierFunc(func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
	})
	onAuthExpired := func() {
		fmt.Fprintln(os.Stderr, "Your session has expired. Run `space login` to continue.")
	}

	rec := reconcile.New(gw, st, follows, sessions, notify, onAuthExpired, log)

	return &app{
		cfg:      cfg,
		log:      log,
		local:    local,
		gw:       gw,
		sessions: sessions,
		store:    st,
		follows:  follows,
		rec:      rec,
	}, nil
}

func (a *app) Close() {
	if err := a.local.Close(); err != nil {
		a.log.Warn("failed to close local store", "error", err.Error())
	}
}

// withApp runs f with a fully wired app and tears it down afterwards.
func withApp(f func(ctx context.Context, a *app, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return f(ctx, a, args)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "space",
		Short:         "Command-line client for the Space social network",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newFeedCmd(),
		newProfileCmd(),
		newPostCmd(),
		newCommentCmd(),
		newLikeCmd(),
		newFollowCmd(),
		newUnfollowCmd(),
	)

	return root
}
