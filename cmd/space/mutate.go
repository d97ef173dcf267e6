package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Mutating commands hydrate the store first so the optimistic commit has
// an entity to act on, then block on the settlement channel. Failure
// notifications have already been printed by the reconciler's notifier by
// the time the channel yields.

func newPostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Create, edit, or delete posts",
	}

	var imagePath string
	create := &cobra.Command{
		Use:   "create <content>",
		Short: "Publish a post",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			var image []byte
			imageName := ""
			if imagePath != "" {
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return err
				}
				image = data
				imageName = filepath.Base(imagePath)
			}
			if err := <-a.rec.CreatePost(ctx, args[0], imageName, image); err != nil {
				return err
			}
			fmt.Println("Post published.")
			return nil
		}),
	}
	create.Flags().StringVar(&imagePath, "image", "", "path to an image attachment")

	edit := &cobra.Command{
		Use:   "edit <post-id> <content>",
		Short: "Replace a post's content",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := a.rec.RefreshFeed(ctx); err != nil {
				return err
			}
			if err := <-a.rec.EditPost(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("Post updated.")
			return nil
		}),
	}

	del := &cobra.Command{
		Use:   "delete <post-id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := a.rec.RefreshFeed(ctx); err != nil {
				return err
			}
			if err := <-a.rec.DeletePost(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("Post deleted.")
			return nil
		}),
	}

	cmd.AddCommand(create, edit, del)
	return cmd
}

func newCommentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Add, edit, or delete comments",
	}

	add := &cobra.Command{
		Use:   "add <post-id> <text>",
		Short: "Comment on a post",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := a.rec.RefreshFeed(ctx); err != nil {
				return err
			}
			if err := <-a.rec.AddComment(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("Comment added.")
			return nil
		}),
	}

	edit := &cobra.Command{
		Use:   "edit <comment-id> <text>",
		Short: "Replace a comment's text",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := a.rec.RefreshFeed(ctx); err != nil {
				return err
			}
			if err := <-a.rec.EditComment(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("Comment updated.")
			return nil
		}),
	}

	del := &cobra.Command{
		Use:   "delete <comment-id>",
		Short: "Delete a comment",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := a.rec.RefreshFeed(ctx); err != nil {
				return err
			}
			if err := <-a.rec.DeleteComment(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("Comment deleted.")
			return nil
		}),
	}

	cmd.AddCommand(add, edit, del)
	return cmd
}

func newLikeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "like",
		Short: "Toggle likes on posts and comments",
	}

	post := &cobra.Command{
		Use:   "post <post-id>",
		Short: "Toggle your like on a post",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := a.rec.RefreshFeed(ctx); err != nil {
				return err
			}
			if err := <-a.rec.LikePost(ctx, args[0]); err != nil {
				return err
			}
			reportLikeState(a, args[0], "")
			return nil
		}),
	}

	comment := &cobra.Command{
		Use:   "comment <comment-id>",
		Short: "Toggle your like on a comment",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := a.rec.RefreshFeed(ctx); err != nil {
				return err
			}
			if err := <-a.rec.LikeComment(ctx, args[0]); err != nil {
				return err
			}
			reportLikeState(a, "", args[0])
			return nil
		}),
	}

	cmd.AddCommand(post, comment)
	return cmd
}

func reportLikeState(a *app, postID, commentID string) {
	sess, ok := a.sessions.Current()
	if !ok {
		return
	}

	if commentID != "" {
		var found bool
		postID, found = a.store.FindCommentPost(commentID)
		if !found {
			return
		}
	}

	p, ok := a.store.Post(postID)
	if !ok {
		return
	}

	if commentID == "" {
		if p.LikedBy(sess.UserID) {
			fmt.Println("Liked.")
		} else {
			fmt.Println("Unliked.")
		}
		return
	}

	for _, c := range p.Comments {
		if c.ID == commentID {
			if c.LikedBy(sess.UserID) {
				fmt.Println("Liked.")
			} else {
				fmt.Println("Unliked.")
			}
			return
		}
	}
}

func newFollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow <user-id>",
		Short: "Follow a user",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := <-a.rec.Follow(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Following %s.\n", args[0])
			return nil
		}),
	}
}

func newUnfollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unfollow <user-id>",
		Short: "Unfollow a user",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := <-a.rec.Unfollow(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Unfollowed %s.\n", args[0])
			return nil
		}),
	}
}
