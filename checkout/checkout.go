// Package checkout prepares Paddle checkouts for the subscription plans.
// It maps plans to product ids and fills the checkout's custom data from
// the signed-in user's Session.
package checkout

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/giihelpdesk/helpdesk-client/config"
	"github.com/giihelpdesk/helpdesk-client/session"
)

const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"

	// DefaultSuccessPath is where a completed checkout lands when no success URL is configured.
	DefaultSuccessPath = "/account/dashboard.html"

	placeholderVendor  = "VENDOR_ID"
	placeholderProduct = "_PRODUCT_ID"
)

var (
	// ErrNotConfigured is returned while the vendor or the plan's product id is a placeholder.
	ErrNotConfigured = errors.New("checkout is not configured yet: set the Paddle vendor id and product ids")

	// ErrUnknownPlan is returned for plans without a product entry.
	ErrUnknownPlan = errors.New("checkout: unknown plan")
)

// Setup is what the Paddle SDK is initialized with.
type Setup struct {
	Vendor      string `json:"vendor"`
	Environment string `json:"environment"`
	Token       string `json:"token,omitempty"`
}

// CustomData travels with the checkout and comes back on the webhook.
type CustomData struct {
	UserEmail    string `json:"userEmail"`
	UserDomain   string `json:"userDomain"`
	SelectedPlan string `json:"selectedPlan"`
}

// Options opens a checkout.
type Options struct {
	Product    string     `json:"product"`
	CustomData CustomData `json:"customData"`
	SuccessURL string     `json:"successUrl"`
}

// Checkout builds checkout options from configuration.
type Checkout struct {
	cfg     config.CheckoutConfig
	siteURL string
}

// New returns a Checkout. siteURL is the site origin used for the default success URL.
func New(cfg config.CheckoutConfig, siteURL string) *Checkout {
	return &Checkout{cfg: cfg, siteURL: strings.TrimRight(siteURL, "/")}
}

// VendorConfigured reports whether a real vendor id is set.
func (c *Checkout) VendorConfigured() bool {
	v := strings.TrimSpace(c.cfg.VendorID)
	return v != "" && v != placeholderVendor
}

// Setup returns the SDK initialization parameters.
func (c *Checkout) Setup() (Setup, error) {
	if !c.VendorConfigured() {
		return Setup{}, ErrNotConfigured
	}
	env := strings.ToLower(strings.TrimSpace(c.cfg.Environment))
	switch env {
	case "":
		env = EnvironmentSandbox
	case EnvironmentSandbox, EnvironmentProduction:
	default:
		return Setup{}, fmt.Errorf("checkout: unknown environment %q", c.cfg.Environment)
	}
	return Setup{Vendor: c.cfg.VendorID, Environment: env, Token: c.cfg.ClientToken}, nil
}

// ProductID returns the product of plan.
func (c *Checkout) ProductID(plan string) (string, error) {
	plan = strings.ToLower(strings.TrimSpace(plan))
	id, ok := c.cfg.Products[plan]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	if id == "" || strings.HasSuffix(id, placeholderProduct) {
		return "", ErrNotConfigured
	}
	return id, nil
}

// Plans lists the plans with a configured product, sorted.
func (c *Checkout) Plans() []string {
	plans := make([]string, 0, len(c.cfg.Products))
	for plan := range c.cfg.Products {
		if _, err := c.ProductID(plan); err == nil {
			plans = append(plans, plan)
		}
	}
	slices.Sort(plans)
	return plans
}

// Options builds the checkout for plan. s may be nil for a signed-out visitor.
func (c *Checkout) Options(plan string, s *session.Session) (Options, error) {
	if !c.VendorConfigured() {
		return Options{}, ErrNotConfigured
	}
	product, err := c.ProductID(plan)
	if err != nil {
		return Options{}, err
	}

	opts := Options{
		Product:    product,
		CustomData: CustomData{SelectedPlan: strings.ToLower(strings.TrimSpace(plan))},
		SuccessURL: c.cfg.SuccessURL,
	}
	if s != nil {
		opts.CustomData.UserEmail = s.Email
		opts.CustomData.UserDomain = s.Domain
	}
	if opts.SuccessURL == "" {
		opts.SuccessURL = c.siteURL + DefaultSuccessPath
	}
	return opts, nil
}
