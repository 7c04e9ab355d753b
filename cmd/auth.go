package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/reels/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin exchanges email and password for a bearer token and stores it.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	password := cmd.String("password")

	r.logger.Info("logging in", "email", email)

	user, err := r.client.Auth.Login(ctx, email, password)
	if err != nil {
		return err
	}

	r.logger.Info("authentication successful", "user", user.ID)
	if user.Name != "" {
		return r.writePlain("✓ Logged in as %s <%s>\n", user.Name, user.Email)
	}
	return r.writePlain("✓ Logged in as %s\n", user.Email)
}

// AuthLogout removes the stored token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.client.Auth.Logout(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthStatus reports the stored session and its expiry.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	token, err := r.client.Auth.Session()
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		return r.writePlain("Authentication: ✗ Not authenticated\n")
	case errors.Is(err, shared.ErrTokenExpired):
		return r.writePlain("Authentication: ✗ Token expired, run 'reels auth login'\n")
	case err != nil:
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"authenticated": true,
			"user":          token.User,
			"expiresAt":     token.Expiry(),
		}, true)
	}

	r.writePlain("Authentication: ✓ Authenticated\n")
	if token.User != nil {
		r.writePlain("User: %s <%s>\n", token.User.Name, token.User.Email)
	}
	if exp := token.Expiry(); !exp.IsZero() {
		r.writePlain("Expires: %s (in %s)\n", exp.Local().Format(time.RFC1123), time.Until(exp).Round(time.Minute))
	}
	return nil
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in with email and password (POST /auth/login)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars("REELS_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored token",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the stored session",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

