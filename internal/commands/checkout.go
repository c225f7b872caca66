package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giihelpdesk/helpdesk-client/checkout"
	"github.com/giihelpdesk/helpdesk-client/config"
	"github.com/giihelpdesk/helpdesk-client/notify"
	"github.com/giihelpdesk/helpdesk-client/session"
)

type checkoutOutput struct {
	Setup   checkout.Setup   `json:"setup"`
	Options checkout.Options `json:"options"`
}

func newCheckoutCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <plan>",
		Short: "Print the Paddle checkout settings for a plan",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(opts, func(ctx context.Context, e *env, args []string) error {
			co := checkout.New(e.cfg.Checkout, siteURL(e.cfg.App))

			s, err := e.client.Session(ctx)
			if err != nil {
				if !errors.Is(err, session.ErrNotFound) {
					return err
				}
				s = nil
			}

			setup, err := co.Setup()
			if err == nil {
				var options checkout.Options
				if options, err = co.Options(args[0], s); err == nil {
					return e.print(checkoutOutput{Setup: setup, Options: options})
				}
			}

			notify.NewWriter(e.errOut).Notify(ctx, notify.Notice{
				Level:   notify.LevelError,
				Title:   "Checkout Error",
				Message: err.Error(),
			})
			e.log.Warn().Err(err).Str("plan", args[0]).Msg("Checkout unavailable")
			return ErrCommandFailed
		}),
	}
}

// siteURL is the public origin of the configured host.
func siteURL(app config.AppConfig) string {
	host := strings.TrimSpace(app.Host)
	if host == "" {
		return ""
	}
	if strings.Contains(host, "://") {
		return strings.TrimRight(host, "/")
	}
	if config.ResolveEnvironment(host) == config.EnvDevelopment {
		return "http://" + host
	}
	return "https://" + host
}
