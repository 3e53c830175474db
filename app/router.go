package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"

	"github.com/matthgross1/message-intent-lab/app/config"
)

// Server carries the constructed dependencies for every handler: config,
// ledger store, and analyzer. There is no package-level mutable state.
type Server struct {
	cfg      *config.Config
	store    LedgerStore
	analyzer Analyzer

	// clock overrides time.Now in tests; nil means real time.
	clock func() time.Time
}

// NewServer wires the application together.
func NewServer(cfg *config.Config, store LedgerStore, analyzer Analyzer) *Server {
	if cfg.Stripe.Enabled() {
		stripe.Key = cfg.Stripe.SecretKey
	}
	return &Server{
		cfg:      cfg,
		store:    store,
		analyzer: analyzer,
	}
}

// NewRouter builds the HTTP router for both local and Lambda execution.
func (s *Server) NewRouter() *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))
	router.SetHTMLTemplate(PageTemplate)

	router.GET("/health", s.Health)
	router.GET("/", s.GetPage)
	router.POST("/", s.PostDecode)
	router.GET("/api/usage", s.GetUsage)
	router.POST("/api/billing/create-checkout-session", s.CreateCheckoutSession)
	router.POST("/api/stripe/webhook", s.StripeWebhook)
	router.GET("/billing/success", s.BillingSuccess)
	router.GET("/billing/cancel", s.BillingCancel)

	return router
}
