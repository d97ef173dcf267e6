package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"space/internal/gateway"
	"space/internal/store"
)

func newFeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: "Fetch and print the feed",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := a.rec.RefreshFeed(ctx); err != nil {
				return err
			}
			views := a.feedViews()
			if len(views) == 0 {
				fmt.Println("The feed is empty.")
				return nil
			}
			for _, v := range views {
				printPost(v)
			}
			return nil
		}),
	}
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit profiles",
	}

	show := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a user's profile and posts",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			userID := args[0]

			token := ""
			if sess, ok := a.sessions.Current(); ok {
				token = sess.Token
			}

			profile, err := a.gw.FetchProfile(ctx, userID, token)
			if err != nil {
				return err
			}
			printProfile(profile, a.follows.Contains(userID))

			posts, err := a.gw.FetchAuthorPosts(ctx, userID, token)
			if err != nil {
				return err
			}
			if len(posts) == 0 {
				fmt.Println("No posts yet.")
				return nil
			}
			a.store.ReplaceAll(store.FromWire(posts))
			for _, v := range a.feedViews() {
				printPost(v)
			}
			return nil
		}),
	}

	var upd gateway.ProfileUpdate
	var avatarPath string
	edit := &cobra.Command{
		Use:   "edit",
		Short: "Edit your profile",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			sess, ok := a.sessions.Current()
			if !ok {
				return fmt.Errorf("not logged in")
			}
			if avatarPath != "" {
				data, err := os.ReadFile(avatarPath)
				if err != nil {
					return err
				}
				upd.Avatar = data
				upd.AvatarName = filepath.Base(avatarPath)
			}

			profile, err := a.gw.UpdateProfile(ctx, sess.Token, sess.UserID, upd)
			if err != nil {
				return err
			}
			fmt.Println("Profile updated.")
			printProfile(profile, false)
			return nil
		}),
	}
	edit.Flags().StringVar(&upd.Name, "name", "", "display name")
	edit.Flags().StringVar(&upd.Username, "username", "", "unique handle")
	edit.Flags().StringVar(&upd.Email, "email", "", "account email")
	edit.Flags().StringVar(&upd.Bio, "bio", "", "profile bio")
	edit.Flags().StringVar(&avatarPath, "avatar", "", "path to an avatar image")

	cmd.AddCommand(show, edit)
	return cmd
}

// feedViews renders the store for the current viewer.
func (a *app) feedViews() []store.PostView {
	viewerID := ""
	if sess, ok := a.sessions.Current(); ok {
		viewerID = sess.UserID
	}
	return a.store.Feed(viewerID, a.follows.Contains)
}

func printProfile(p *gateway.Profile, followed bool) {
	fmt.Printf("%s (@%s)\n", p.Name, p.Username)
	if p.Bio != "" {
		fmt.Printf("  %s\n", p.Bio)
	}
	fmt.Printf("  %d followers, %d following\n", len(p.Followers), len(p.Following))
	if len(p.Followers) > 0 {
		fmt.Printf("  followers: %s\n", strings.Join(p.Followers, ", "))
	}
	if len(p.Following) > 0 {
		fmt.Printf("  following: %s\n", strings.Join(p.Following, ", "))
	}
	if followed {
		fmt.Println("  You follow this user.")
	}
}

func printPost(v store.PostView) {
	marks := make([]string, 0, 2)
	if v.IsLiked {
		marks = append(marks, "liked")
	}
	if v.IsFollowingAuthor {
		marks = append(marks, "following")
	}
	suffix := ""
	if len(marks) > 0 {
		suffix = " [" + strings.Join(marks, ", ") + "]"
	}

	fmt.Printf("%s  @%s  %s%s\n", v.ID, v.Author.Username, relTime(v.CreatedAt), suffix)
	fmt.Printf("  %s\n", v.Content)
	fmt.Printf("  %d likes, %d comments\n", v.LikeCount, v.CommentCount)
	for _, c := range v.Comments {
		liked := ""
		if c.IsLiked {
			liked = " [liked]"
		}
		fmt.Printf("    %s  @%s: %s (%d likes)%s\n", c.ID, c.Author.Username, c.Text, c.LikeCount, liked)
	}
	fmt.Println()
}

// relTime formats a timestamp the way the feed shows it: relative below a
// week, absolute beyond.
func relTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}
