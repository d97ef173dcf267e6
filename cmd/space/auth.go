package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"space/internal/gateway"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session credential",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			tok, err := a.gw.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := a.sessions.Establish(ctx, tok); err != nil {
				return err
			}
			sess, _ := a.sessions.Current()
			fmt.Printf("Logged in as %s (%s)\n", sess.Username, sess.UserID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var req gateway.RegisterRequest
	var avatarPath string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if req.ConfirmPassword == "" {
				req.ConfirmPassword = req.Password
			}
			if avatarPath != "" {
				data, err := os.ReadFile(avatarPath)
				if err != nil {
					return err
				}
				req.Avatar = data
				req.AvatarName = filepath.Base(avatarPath)
			}

			tok, err := a.gw.Register(ctx, req)
			if err != nil {
				return err
			}
			if err := a.sessions.Establish(ctx, tok); err != nil {
				return err
			}
			sess, _ := a.sessions.Current()
			fmt.Printf("Registered and logged in as %s (%s)\n", sess.Username, sess.UserID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "unique handle")
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	cmd.Flags().StringVar(&avatarPath, "avatar", "", "path to an avatar image")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the session and the persisted credential",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			a.sessions.Logout()
			fmt.Println("Logged out.")
			return nil
		}),
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the active session",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			sess, ok := a.sessions.Current()
			if !ok {
				fmt.Println("Not logged in.")
				return nil
			}
			fmt.Printf("%s (%s)\n", sess.Username, sess.UserID)
			fmt.Printf("  name:    %s\n", sess.Name)
			fmt.Printf("  email:   %s\n", sess.Email)
			fmt.Printf("  expires: %s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		}),
	}
}
