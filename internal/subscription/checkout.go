package subscription

import (
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

var (
	// ErrNotPurchasable is returned for the free tier.
	ErrNotPurchasable = errors.New("tier is not purchasable")
	// ErrPriceNotConfigured is returned when no Stripe price is set for a tier.
	ErrPriceNotConfigured = errors.New("no stripe price configured for tier")
)

// CheckoutConfig holds the Stripe settings for checkout sessions.
type CheckoutConfig struct {
	SecretKey  string
	Prices     map[Tier]string // Stripe price ids
	SuccessURL string
	CancelURL  string
}

// Checkout creates Stripe Checkout Sessions for tier upgrades.
type Checkout struct {
	cfg        CheckoutConfig
	newSession func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewCheckout sets the Stripe key and returns a Checkout.
func NewCheckout(cfg CheckoutConfig) *Checkout {
	stripe.Key = cfg.SecretKey
	return &Checkout{cfg: cfg, newSession: session.New}
}

// Enabled reports whether a secret key was configured.
func (c *Checkout) Enabled() bool {
	return c != nil && c.cfg.SecretKey != ""
}

// CreateSession starts a subscription checkout for userID and returns the
// redirect URL.
func (c *Checkout) CreateSession(userID string, tier Tier) (string, error) {
	if tier == TierFree {
		return "", ErrNotPurchasable
	}
	priceID := c.cfg.Prices[tier]
	if priceID == "" {
		return "", fmt.Errorf("%w: %s", ErrPriceNotConfigured, tier)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(c.cfg.SuccessURL),
		CancelURL:         stripe.String(c.cfg.CancelURL),
		ClientReferenceID: stripe.String(userID),
		Metadata: map[string]string{
			"user_id": userID,
			"tier":    string(tier),
		},
	}

	s, err := c.newSession(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	log.WithFields(log.Fields{"session": s.ID, "tier": tier}).Info("subscription: checkout session created")
	return s.URL, nil
}
