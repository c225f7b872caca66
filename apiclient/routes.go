package apiclient

import (
	"fmt"
	"strings"
)

// Route styles understood by RoutesFor.
const (
	StyleFunctions = "functions"
	StyleREST      = "rest"
)

// Routes maps every call to its endpoint path.
type Routes struct {
	Register    string
	Login       string
	Forgot      string
	Reset       string
	Verify      string
	CheckDomain string

	AccountMe             string
	AccountProfile        string
	AccountActivity       string
	AccountBilling        string
	AccountPaymentMethods string
	AccountBillingHistory string
	ServicePolicyGet      string
	ServicePolicyUpload   string

	SubscriptionStatus  string
	SubscriptionPlans   string
	SubscriptionUpgrade string
	SubscriptionCancel  string
}

// FunctionRoutes names endpoints after the deployed cloud functions.
func FunctionRoutes() Routes {
	return Routes{
		Register:    "/auth-register",
		Login:       "/auth-login",
		Forgot:      "/auth-forgot",
		Reset:       "/auth-reset",
		Verify:      "/auth-verify",
		CheckDomain: "/auth-check-domain",

		AccountMe:             "/account-me",
		AccountProfile:        "/account-profile",
		AccountActivity:       "/account-activity",
		AccountBilling:        "/account-billing",
		AccountPaymentMethods: "/account-payment-methods",
		AccountBillingHistory: "/account-billing-history",
		ServicePolicyGet:      "/getServicePolicy",
		ServicePolicyUpload:   "/uploadServicePolicy",

		SubscriptionStatus:  "/getSubscriptionStatus",
		SubscriptionPlans:   "/subscription-plans",
		SubscriptionUpgrade: "/upgradeSubscription",
		SubscriptionCancel:  "/cancelSubscription",
	}
}

// RESTRoutes is the resource-style layout served behind an API gateway.
func RESTRoutes() Routes {
	return Routes{
		Register:    "/api/v1/auth/register",
		Login:       "/api/v1/auth/login",
		Forgot:      "/api/v1/auth/forgot-password",
		Reset:       "/api/v1/auth/reset-password",
		Verify:      "/api/v1/auth/verify-email",
		CheckDomain: "/api/v1/auth/check-domain",

		AccountMe:             "/api/v1/account/me",
		AccountProfile:        "/api/v1/account/profile",
		AccountActivity:       "/api/v1/account/activity",
		AccountBilling:        "/api/v1/account/billing",
		AccountPaymentMethods: "/api/v1/account/payment-methods",
		AccountBillingHistory: "/api/v1/account/billing-history",
		ServicePolicyGet:      "/api/v1/account/service-policy",
		ServicePolicyUpload:   "/api/v1/account/service-policy/upload",

		SubscriptionStatus:  "/api/v1/subscription/status",
		SubscriptionPlans:   "/api/v1/subscription/plans",
		SubscriptionUpgrade: "/api/v1/subscription/upgrade",
		SubscriptionCancel:  "/api/v1/subscription/cancel",
	}
}

// RoutesFor returns the built-in routes of a style. An empty style means functions.
func RoutesFor(style string) (Routes, error) {
	switch strings.ToLower(strings.TrimSpace(style)) {
	case "", StyleFunctions:
		return FunctionRoutes(), nil
	case StyleREST:
		return RESTRoutes(), nil
	default:
		return Routes{}, fmt.Errorf("apiclient: unknown route style %q", style)
	}
}

// withDefaults fills empty entries from the functions layout.
func (r Routes) withDefaults() Routes {
	d := FunctionRoutes()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&r.Register, d.Register)
	fill(&r.Login, d.Login)
	fill(&r.Forgot, d.Forgot)
	fill(&r.Reset, d.Reset)
	fill(&r.Verify, d.Verify)
	fill(&r.CheckDomain, d.CheckDomain)
	fill(&r.AccountMe, d.AccountMe)
	fill(&r.AccountProfile, d.AccountProfile)
	fill(&r.AccountActivity, d.AccountActivity)
	fill(&r.AccountBilling, d.AccountBilling)
	fill(&r.AccountPaymentMethods, d.AccountPaymentMethods)
	fill(&r.AccountBillingHistory, d.AccountBillingHistory)
	fill(&r.ServicePolicyGet, d.ServicePolicyGet)
	fill(&r.ServicePolicyUpload, d.ServicePolicyUpload)
	fill(&r.SubscriptionStatus, d.SubscriptionStatus)
	fill(&r.SubscriptionPlans, d.SubscriptionPlans)
	fill(&r.SubscriptionUpgrade, d.SubscriptionUpgrade)
	fill(&r.SubscriptionCancel, d.SubscriptionCancel)
	return r
}
