package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"

	"github.com/matthgross1/message-intent-lab/app/models"
)

var (
	// ErrInvalidPack means the requested pack size is not one of the
	// configured credit packs. User-correctable.
	ErrInvalidPack = errors.New("invalid credit pack")
	// ErrPurchasingNotConfigured means the Stripe integration is missing
	// required configuration; the UI hides purchase options in this state.
	ErrPurchasingNotConfigured = errors.New("purchasing is not configured")
)

// PurchasingEnabled reports whether checkout can be offered at all.
func (s *Server) PurchasingEnabled() bool {
	return s.cfg.Stripe.Enabled()
}

// CreateCheckout starts a Stripe Checkout Session for one credit pack and
// returns the hosted checkout URL. The session carries the user id and pack
// size as metadata so the webhook can attribute the purchase.
func (s *Server) CreateCheckout(_ context.Context, userID string, packSize int) (string, error) {
	if !s.cfg.Stripe.Enabled() {
		return "", ErrPurchasingNotConfigured
	}
	if !models.ValidPackSize(packSize) {
		return "", ErrInvalidPack
	}
	if userID == "" {
		return "", errors.New("missing user id")
	}

	priceID := s.cfg.Stripe.PackPrices[packSize]
	baseURL := s.cfg.Server.BaseURL
	if baseURL == "" {
		return "", ErrPurchasingNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(baseURL + "/billing/success"),
		CancelURL:  stripe.String(baseURL + "/billing/cancel"),
	}
	params.AddMetadata("user_id", userID)
	params.AddMetadata("pack_size", strconv.Itoa(packSize))

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe checkout session: %w", err)
	}

	return sess.URL, nil
}
