package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/giihelpdesk/helpdesk-client/apiclient"
	"github.com/giihelpdesk/helpdesk-client/session"
)

type loginOptions struct {
	email    string
	password string
}

func newLoginCommand(opts *GlobalOptions) *cobra.Command {
	lo := &loginOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Example: `  helpdesk login --email owner@shop.com
  echo "$PASSWORD" | helpdesk login --email owner@shop.com`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = withEnv(opts, func(ctx context.Context, e *env, _ []string) error {
		password, err := passwordOrStdin(cmd.InOrStdin(), lo.password)
		if err != nil {
			return err
		}
		return e.result(e.client.Login(ctx, apiclient.Credentials{Email: lo.email, Password: password}))
	})
	cmd.Flags().StringVarP(&lo.email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&lo.password, "password", "p", "", "Password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, e *env, _ []string) error {
			if err := e.client.Logout(ctx); err != nil {
				return err
			}
			return e.print(map[string]any{"success": true})
		}),
	}
}

func newRegisterCommand(opts *GlobalOptions) *cobra.Command {
	req := apiclient.RegisterRequest{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account for a shop domain",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withEnv(opts, func(ctx context.Context, e *env, _ []string) error {
		password, err := passwordOrStdin(cmd.InOrStdin(), req.Password)
		if err != nil {
			return err
		}
		r := req
		r.Password = password
		return e.result(e.client.Register(ctx, r))
	})
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password (read from stdin when omitted)")
	cmd.Flags().StringVarP(&req.Domain, "domain", "d", "", "Shop domain")
	cmd.Flags().StringVar(&req.Name, "name", "", "Display name")
	return cmd
}

func newForgotPasswordCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "Send a password reset email",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(opts, func(ctx context.Context, e *env, args []string) error {
			return e.result(e.client.ForgotPassword(ctx, args[0]))
		}),
	}
}

func newResetPasswordCommand(opts *GlobalOptions) *cobra.Command {
	var password, confirm string
	cmd := &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password with a reset token",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withEnv(opts, func(ctx context.Context, e *env, args []string) error {
		pw, err := passwordOrStdin(cmd.InOrStdin(), password)
		if err != nil {
			return err
		}
		c := confirm
		if c == "" {
			c = pw
		}
		return e.result(e.client.ResetPassword(ctx, args[0], pw, c))
	})
	cmd.Flags().StringVarP(&password, "password", "p", "", "New password (read from stdin when omitted)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "Password confirmation (defaults to --password)")
	return cmd
}

func newVerifyEmailCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-email <token>",
		Short: "Confirm an email address",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(opts, func(ctx context.Context, e *env, args []string) error {
			return e.result(e.client.VerifyEmail(ctx, args[0]))
		}),
	}
}

func newCheckDomainCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-domain <domain>",
		Short: "Check whether a shop domain is available",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(opts, func(ctx context.Context, e *env, args []string) error {
			return e.result(e.client.CheckDomain(ctx, args[0]))
		}),
	}
}

type whoami struct {
	Authenticated bool       `json:"authenticated"`
	Email         string     `json:"email,omitempty"`
	Domain        string     `json:"domain,omitempty"`
	Plan          string     `json:"plan,omitempty"`
	Token         string     `json:"token,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

func newWhoamiCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, e *env, _ []string) error {
			w := whoami{Authenticated: e.client.IsAuthenticated()}
			s, err := e.client.Session(ctx)
			if err == nil {
				w.Email = s.Email
				w.Domain = s.Domain
				w.Plan = s.Plan()
				w.Token = apiclient.TokenPreview(s.Token)
				if !s.UpdatedAt.IsZero() {
					updated := s.UpdatedAt
					w.UpdatedAt = &updated
				}
				if exp, ok := session.TokenExpiry(s.Token); ok {
					w.ExpiresAt = &exp
				}
			} else if !errors.Is(err, session.ErrNotFound) {
				return err
			}
			if err := e.print(w); err != nil {
				return err
			}
			if !w.Authenticated {
				return ErrCommandFailed
			}
			return nil
		}),
	}
}

// passwordOrStdin returns flagValue, or the first line of r when it is empty.
func passwordOrStdin(r io.Reader, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
