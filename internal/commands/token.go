package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giihelpdesk/helpdesk-client/apiclient"
)

func newTokenCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored session token directly",
	}

	set := &cobra.Command{
		Use:   "set [token]",
		Short: "Store a token obtained elsewhere (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
	}
	set.RunE = withEnv(opts, func(ctx context.Context, e *env, args []string) error {
		token := ""
		if len(args) == 1 {
			token = args[0]
		} else {
			var err error
			if token, err = passwordOrStdin(set.InOrStdin(), ""); err != nil {
				return err
			}
		}
		if err := e.client.SetToken(ctx, strings.TrimSpace(token)); err != nil {
			if f, ok := apiclient.AsFailure(err); ok {
				e.log.Debug().Str("kind", f.Kind.String()).Msg("Token rejected")
				_ = e.print(map[string]any{"success": false, "error": f.Message, "kind": f.Kind})
				return ErrCommandFailed
			}
			return err
		}
		return e.print(map[string]any{
			"success":       true,
			"token":         apiclient.TokenPreview(e.client.Token()),
			"authenticated": e.client.IsAuthenticated(),
		})
	})

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored token and session",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, e *env, _ []string) error {
			if err := e.client.ClearToken(ctx); err != nil {
				return err
			}
			return e.print(map[string]any{"success": true})
		}),
	}

	cmd.AddCommand(set, clearCmd)
	return cmd
}
