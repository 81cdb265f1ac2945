package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
)

const passwordEnv = "CAMPUSFACE_PASSWORD"

func (a *App) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			pw, err := a.password(password)
			if err != nil {
				return err
			}

			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := a.client.Login(ctx, email, pw)
			if err != nil {
				return err
			}
			return a.saveSession(resp)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (default: $"+passwordEnv+" or stdin)")
	return cmd
}

func (a *App) registerCmd() *cobra.Command {
	var req domain.RegisterRequest
	var password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.FullName == "" || req.Email == "" || req.Document == "" {
				return errors.New("--name, --email and --document are required")
			}
			pw, err := a.password(password)
			if err != nil {
				return err
			}
			req.Password = pw

			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := a.client.Register(ctx, req)
			if err != nil {
				return err
			}
			return a.saveSession(resp)
		},
	}
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Document, "document", "", "identity document number")
	cmd.Flags().StringVar(&password, "password", "", "password (default: $"+passwordEnv+" or stdin)")
	return cmd
}

func (a *App) saveSession(resp *domain.TokenResponse) error {
	store, err := a.store()
	if err != nil {
		return err
	}
	sess := auth.Session{Token: resp.Token, UserID: resp.User.ID, Email: resp.User.Email}
	if sess.UserID == "" {
		if claims, err := auth.NewClaimsReader().Inspect(sess.Credential()); err == nil {
			sess.UserID, sess.Email = claims.SubjectID(), claims.Email
		}
	}
	if err := store.Save(sess); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", nonEmpty(resp.User.FullName, sess.Email))
	return nil
}

// password: флаг, затем переменная окружения, затем первая строка stdin.
func (a *App) password(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}
	fmt.Fprint(a.out, "Password: ")
	line, err := bufio.NewReader(a.in).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", errors.New("empty password")
	}
	return line, nil
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}

func (a *App) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := a.credential()
			if err != nil {
				return err
			}
			claims, err := auth.NewClaimsReader().Inspect(cred)
			if err != nil {
				return err
			}

			ctx, cancel := a.ctx(cmd)
			defer cancel()
			user, err := a.client.GetUser(ctx, cred, claims.SubjectID())
			if err != nil {
				return err
			}
			expires := "-"
			if claims.ExpiresAt != nil {
				expires = formatTime(claims.ExpiresAt.Time)
			}
			return a.table(user,
				[]string{"ID", "NAME", "EMAIL", "EXPIRES"},
				[][]string{{user.ID, user.FullName, user.Email, expires}},
			)
		},
	}
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
