package app

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// CreateCheckoutSession starts checkout for the pack size named in the form
// (or JSON body) and redirects the browser to Stripe's hosted page.
func (s *Server) CreateCheckoutSession(c *gin.Context) {
	userID := s.resolveIdentity(c)

	packSize, err := requestedPackSize(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pack size"})
		return
	}

	url, err := s.CreateCheckout(c.Request.Context(), userID, packSize)
	switch {
	case errors.Is(err, ErrInvalidPack):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pack size"})
		return
	case errors.Is(err, ErrPurchasingNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "purchasing not available"})
		return
	case err != nil:
		log.Printf("stripe checkout failed user=%s pack=%d err=%v", userID, packSize, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session"})
		return
	}

	// Plain form posts from the page want a redirect; API callers get JSON.
	if c.ContentType() == "application/json" {
		c.JSON(http.StatusOK, gin.H{"url": url})
		return
	}
	c.Redirect(http.StatusSeeOther, url)
}

func requestedPackSize(c *gin.Context) (int, error) {
	if raw := c.PostForm("pack_size"); raw != "" {
		return strconv.Atoi(raw)
	}
	var body struct {
		PackSize json.Number `json:"pack_size"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return 0, err
	}
	n, err := body.PackSize.Int64()
	return int(n), err
}

// StripeWebhook verifies and applies payment events. A verified
// checkout.session.completed grants the pack's credits to the user id the
// session was tagged with. Verified events this handler cannot attribute are
// logged and acknowledged so Stripe stops retrying them.
func (s *Server) StripeWebhook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Printf("stripe webhook read failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	endpointSecret := s.cfg.Stripe.WebhookSecret
	if endpointSecret == "" {
		log.Printf("stripe webhook secret missing")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		c.GetHeader("Stripe-Signature"),
		endpointSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		log.Printf("stripe webhook signature failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			log.Printf("stripe session unmarshal failed: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session payload"})
			return
		}

		userID := sess.Metadata["user_id"]
		credits, convErr := strconv.Atoi(sess.Metadata["pack_size"])
		if userID == "" || convErr != nil || credits <= 0 {
			// The event is genuine but this system can never act on it;
			// acknowledge so Stripe stops redelivering.
			log.Printf("stripe session unattributable event=%s user=%q pack=%q",
				event.ID, userID, sess.Metadata["pack_size"])
			break
		}

		applied, err := s.store.GrantCredits(c.Request.Context(), event.ID, userID, credits, s.now())
		if err != nil {
			log.Printf("stripe credit grant failed event=%s user=%s err=%v", event.ID, userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to grant credits"})
			return
		}
		if !applied {
			log.Printf("stripe event duplicate delivery event=%s", event.ID)
			break
		}
		log.Printf("granted %d credits user=%s event=%s", credits, userID, event.ID)
	default:
		// Intentionally ignore unhandled events.
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
