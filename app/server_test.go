package app

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/matthgross1/message-intent-lab/app/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAnalyzer is a canned Analyzer for handler tests.
type fakeAnalyzer struct {
	transcript      string
	markup          string
	transcribeErr   error
	interpretErr    error
	transcribeCalls int
	interpretCalls  int
}

func (f *fakeAnalyzer) Transcribe(_ context.Context, _ []ImageAttachment) (string, error) {
	f.transcribeCalls++
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return f.transcript, nil
}

func (f *fakeAnalyzer) Interpret(_ context.Context, _, _ string) (string, error) {
	f.interpretCalls++
	if f.interpretErr != nil {
		return "", f.interpretErr
	}
	return f.markup, nil
}

func testStripeConfig() config.StripeConfig {
	return config.NewStripeConfig("sk_test_123", "whsec_test_secret", map[int]string{
		10: "price_pack_10",
		25: "price_pack_25",
		50: "price_pack_50",
	})
}

// newTestServer builds a Server on the in-memory store with a pinned clock.
// The returned time pointer can be advanced to simulate day rollover.
func newTestServer(t *testing.T, purchasing bool, analyzer Analyzer) (*Server, LedgerStore, *time.Time) {
	t.Helper()

	now := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)
	store := NewMemoryLedgerStore()

	stripeCfg := config.StripeConfig{}
	if purchasing {
		stripeCfg = testStripeConfig()
	}
	cfg := &config.Config{
		Server: config.ServerConfig{
			Addr:    "127.0.0.1:0",
			BaseURL: "https://lab.example",
		},
		Stripe: stripeCfg,
	}

	server := NewServer(cfg, store, analyzer)
	server.clock = func() time.Time { return now }
	return server, store, &now
}
