package apiclient

import (
	"context"
	nethttp "net/http"
	"net/url"

	"github.com/giihelpdesk/helpdesk-client/session"
)

// Plans allowed to upload a service policy.
var servicePolicyPlans = []string{"pro", "team"}

// ServicePolicy is a policy document for a shop.
type ServicePolicy struct {
	// ShopDomain defaults to the stored Session's domain.
	ShopDomain string `json:"shopDomain"`
	PolicyType string `json:"policyType" validate:"notblank"`
	Content    string `json:"content" validate:"notblank"`
}

type servicePolicyUpload struct {
	ServicePolicy
	UserSubscription session.Subscription `json:"userSubscription"`
}

type subscriptionStatusRequest struct {
	UserEmail  string `json:"userEmail"`
	ShopDomain string `json:"shopDomain"`
}

type upgradeRequest struct {
	Plan  string `json:"plan" validate:"notblank"`
	Seats int    `json:"seats" validate:"gte=0"`
}

// GetAccountInfo fetches the account and refreshes the stored email and domain.
func (c *Client) GetAccountInfo(ctx context.Context) Outcome {
	out := c.call(ctx, c.routes.AccountMe, RequestOptions{}, true)
	if !out.Success {
		return out
	}
	account := out.DataMap()
	if user, ok := account["user"].(map[string]any); ok {
		account = user
	}
	email, domain := stringField(account, "email"), stringField(account, "domain")
	if email != "" || domain != "" {
		c.refresh(ctx, func(s *session.Session) {
			if email != "" {
				s.Email = email
			}
			if domain != "" {
				s.Domain = domain
			}
		})
	}
	return out
}

// UpdateProfile sends profile wrapped as {"profile": ...}.
func (c *Client) UpdateProfile(ctx context.Context, profile any) Outcome {
	return c.call(ctx, c.routes.AccountProfile, RequestOptions{
		Method: nethttp.MethodPatch,
		Body:   map[string]any{"profile": profile},
	}, false)
}

func (c *Client) GetBillingInfo(ctx context.Context) Outcome {
	return c.call(ctx, c.routes.AccountBilling, RequestOptions{}, true)
}

func (c *Client) GetPaymentMethods(ctx context.Context) Outcome {
	return c.call(ctx, c.routes.AccountPaymentMethods, RequestOptions{}, true)
}

func (c *Client) GetBillingHistory(ctx context.Context) Outcome {
	return c.call(ctx, c.routes.AccountBillingHistory, RequestOptions{}, true)
}

func (c *Client) GetUserActivity(ctx context.Context) Outcome {
	return c.call(ctx, c.routes.AccountActivity, RequestOptions{}, true)
}

// GetServicePolicy reads the policy of shopDomain, or of the stored Session's domain when empty.
func (c *Client) GetServicePolicy(ctx context.Context, shopDomain string) Outcome {
	if shopDomain == "" {
		shopDomain = c.storedSession(ctx).Domain
	}
	endpoint := c.routes.ServicePolicyGet + "?shopDomain=" + url.QueryEscape(shopDomain)
	return c.call(ctx, endpoint, RequestOptions{}, true)
}

// UploadServicePolicy stores a policy. Only Pro and Team plans may upload;
// other plans fail with KindPlanNotEligible before any request is made.
func (c *Client) UploadServicePolicy(ctx context.Context, policy ServicePolicy) Outcome {
	stored := c.storedSession(ctx)
	if !stored.HasPlan(servicePolicyPlans...) {
		f := newFailure(KindPlanNotEligible, MessagePlanNotEligible, 0, ErrPlanNotEligible)
		c.report(ctx, TitleAPIError, f)
		return failed(f, c.envelope)
	}
	if out, ok := c.validate(ctx, policy); !ok {
		return out
	}
	if policy.ShopDomain == "" {
		policy.ShopDomain = stored.Domain
	}
	return c.call(ctx, c.routes.ServicePolicyUpload, RequestOptions{
		Method: nethttp.MethodPost,
		Body:   servicePolicyUpload{ServicePolicy: policy, UserSubscription: stored.Subscription},
	}, false)
}

// GetSubscriptionStatus asks for the plan of an account. Empty arguments
// default to the stored Session; the returned subscription is stored.
func (c *Client) GetSubscriptionStatus(ctx context.Context, userEmail, shopDomain string) Outcome {
	if userEmail == "" || shopDomain == "" {
		stored := c.storedSession(ctx)
		if userEmail == "" {
			userEmail = stored.Email
		}
		if shopDomain == "" {
			shopDomain = stored.Domain
		}
	}
	out := c.call(ctx, c.routes.SubscriptionStatus, RequestOptions{
		Method: nethttp.MethodPost,
		Body:   subscriptionStatusRequest{UserEmail: userEmail, ShopDomain: shopDomain},
	}, true)
	if !out.Success {
		return out
	}

	data := out.DataMap()
	raw, present := data["subscription"]
	if !present {
		if _, hasPlan := data["plan"]; hasPlan {
			raw, present = data, true
		}
	}
	if sub := subscriptionFrom(raw); present && sub != nil {
		c.refresh(ctx, func(s *session.Session) { s.Subscription = sub })
	}
	return out
}

func (c *Client) GetSubscriptionPlans(ctx context.Context) Outcome {
	return c.call(ctx, c.routes.SubscriptionPlans, RequestOptions{}, true)
}

// UpgradeSubscription moves the account to plan with the given seat count.
func (c *Client) UpgradeSubscription(ctx context.Context, plan string, seats int) Outcome {
	req := upgradeRequest{Plan: plan, Seats: seats}
	if out, ok := c.validate(ctx, req); !ok {
		return out
	}
	return c.call(ctx, c.routes.SubscriptionUpgrade, RequestOptions{Method: nethttp.MethodPost, Body: req}, false)
}

func (c *Client) CancelSubscription(ctx context.Context) Outcome {
	return c.call(ctx, c.routes.SubscriptionCancel, RequestOptions{Method: nethttp.MethodPost}, false)
}

// storedSession never returns nil; an empty or unreadable slot yields a zero Session.
func (c *Client) storedSession(ctx context.Context) *session.Session {
	s, err := c.store.Load(ctx)
	if err != nil || s == nil {
		return &session.Session{}
	}
	return s
}
