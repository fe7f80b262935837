package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with your Google account",
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and revoke the saved credential",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the signed-in user and session status",
		RunE:  runWhoami,
	}
}

func runLogin(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.session.Authenticated() {
		statusf("Already signed in.\n")

		return nil
	}

	if err := a.session.SignIn(ctx); err != nil {
		return fmt.Errorf("signing in: %w", err)
	}

	sess := a.session.Current()
	if sess.User != nil {
		statusf("Signed in as %s (%s).\n", sess.User.Name, sess.User.Email)
	} else {
		statusf("Signed in.\n")
	}

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	a.session.SignOut(ctx)
	statusf("Signed out.\n")

	return nil
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	State        string `json:"state"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	TokenExpiry  string `json:"token_expiry,omitempty"`
	SessionStart string `json:"session_start,omitempty"`
}

func runWhoami(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := whoamiOutput{State: a.session.State().String()}

	sess := a.session.Current()
	if sess.User != nil {
		out.Name = sess.User.Name
		out.Email = sess.User.Email
	}

	if !sess.TokenExpiry.IsZero() {
		out.TokenExpiry = sess.TokenExpiry.Format(time.RFC3339)
	}

	if !sess.SessionStart.IsZero() {
		out.SessionStart = sess.SessionStart.Format(time.RFC3339)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}

		return nil
	}

	fmt.Printf("State:   %s\n", out.State)

	if out.Name != "" {
		fmt.Printf("User:    %s (%s)\n", out.Name, out.Email)
	}

	if !sess.TokenExpiry.IsZero() {
		fmt.Printf("Expires: %s\n", formatTime(sess.TokenExpiry))
	}

	if !sess.SessionStart.IsZero() {
		fmt.Printf("Since:   %s\n", formatTime(sess.SessionStart))
	}

	return nil
}
