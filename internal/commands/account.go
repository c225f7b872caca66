package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/giihelpdesk/helpdesk-client/apiclient"
)

// simpleCall adapts a no-argument client call into a subcommand.
func simpleCall(opts *GlobalOptions, use, short string, call func(*apiclient.Client, context.Context) apiclient.Outcome) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, e *env, _ []string) error {
			return e.result(call(e.client, ctx))
		}),
	}
}

func newAccountCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account details, billing and activity",
	}
	cmd.AddCommand(
		simpleCall(opts, "info", "Show the account and refresh the stored session", (*apiclient.Client).GetAccountInfo),
		newProfileCommand(opts),
		simpleCall(opts, "billing", "Show billing information", (*apiclient.Client).GetBillingInfo),
		simpleCall(opts, "payment-methods", "List payment methods", (*apiclient.Client).GetPaymentMethods),
		simpleCall(opts, "billing-history", "List past invoices", (*apiclient.Client).GetBillingHistory),
		simpleCall(opts, "activity", "Show recent account activity", (*apiclient.Client).GetUserActivity),
	)
	return cmd
}

func newProfileCommand(opts *GlobalOptions) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:     "profile",
		Short:   "Update the profile with a JSON object",
		Example: `  helpdesk account profile --data '{"name":"Jane","company":"Shop"}'`,
		Args:    cobra.NoArgs,
	}
	cmd.RunE = withEnv(opts, func(ctx context.Context, e *env, _ []string) error {
		var profile map[string]any
		if err := json.Unmarshal([]byte(data), &profile); err != nil {
			return fmt.Errorf("--data must be a JSON object: %w", err)
		}
		return e.result(e.client.UpdateProfile(ctx, profile))
	})
	cmd.Flags().StringVar(&data, "data", "", "Profile fields as a JSON object")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newPolicyCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Read or upload the shop service policy",
	}

	var shop string
	get := &cobra.Command{
		Use:   "get",
		Short: "Fetch the service policy",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, e *env, _ []string) error {
			return e.result(e.client.GetServicePolicy(ctx, shop))
		}),
	}
	get.Flags().StringVar(&shop, "shop", "", "Shop domain (defaults to the signed-in domain)")

	var policy apiclient.ServicePolicy
	var file string
	upload := &cobra.Command{
		Use:   "upload",
		Short: "Upload a service policy (Pro and Team plans)",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, e *env, _ []string) error {
			p := policy
			if file != "" {
				content, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read policy file: %w", err)
				}
				p.Content = string(content)
			}
			return e.result(e.client.UploadServicePolicy(ctx, p))
		}),
	}
	upload.Flags().StringVar(&policy.ShopDomain, "shop", "", "Shop domain (defaults to the signed-in domain)")
	upload.Flags().StringVar(&policy.PolicyType, "type", "", "Policy type, e.g. returns or shipping")
	upload.Flags().StringVar(&policy.Content, "content", "", "Policy text")
	upload.Flags().StringVarP(&file, "file", "f", "", "Read the policy text from a file")

	cmd.AddCommand(get, upload)
	return cmd
}

func newSubscriptionCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscription",
		Short: "Subscription status, plans and changes",
	}

	var email, shop string
	status := &cobra.Command{
		Use:   "status",
		Short: "Show the subscription and refresh the stored session",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, e *env, _ []string) error {
			return e.result(e.client.GetSubscriptionStatus(ctx, email, shop))
		}),
	}
	status.Flags().StringVar(&email, "email", "", "User email (defaults to the signed-in email)")
	status.Flags().StringVar(&shop, "shop", "", "Shop domain (defaults to the signed-in domain)")

	var seats int
	upgrade := &cobra.Command{
		Use:   "upgrade <plan>",
		Short: "Move to another plan",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(opts, func(ctx context.Context, e *env, args []string) error {
			return e.result(e.client.UpgradeSubscription(ctx, args[0], seats))
		}),
	}
	upgrade.Flags().IntVar(&seats, "seats", 0, "Seat count for team plans")

	cmd.AddCommand(
		status,
		simpleCall(opts, "plans", "List available plans", (*apiclient.Client).GetSubscriptionPlans),
		upgrade,
		simpleCall(opts, "cancel", "Cancel the subscription", (*apiclient.Client).CancelSubscription),
	)
	return cmd
}
