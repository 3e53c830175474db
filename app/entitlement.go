package app

import (
	"context"
	"fmt"
	"time"

	"github.com/matthgross1/message-intent-lab/app/models"
)

// Decision is the entitlement classification for one pending decode.
type Decision struct {
	Path   models.EntitlementPath
	Ledger models.Ledger
	// PurchasingEnabled tells the limit UI whether to offer credit packs.
	// It comes from the checkout configuration, not from the ledger.
	PurchasingEnabled bool
}

// Classify is the pure decision function over a freshly rolled-over ledger.
// Paid credits always win over the free allowance so a purchase does not
// also burn that day's free quota.
func Classify(ledger models.Ledger) models.EntitlementPath {
	if ledger.PaidDecodeCredits > 0 {
		return models.PathPaid
	}
	if ledger.FreeUsesToday < models.FreeDailyLimit {
		return models.PathFree
	}
	return models.PathBlocked
}

// Evaluate loads (creating if needed) and rolls over the ledger for userID,
// then classifies the pending request. Storage errors propagate; callers
// must deny on error, never allow.
func (s *Server) Evaluate(ctx context.Context, userID string) (Decision, error) {
	now := s.now()
	if _, err := s.store.LoadOrCreate(ctx, userID, now); err != nil {
		return Decision{}, fmt.Errorf("load ledger: %w", err)
	}
	ledger, _, err := s.store.RollOverIfStale(ctx, userID, models.DayUTC(now))
	if err != nil {
		return Decision{}, fmt.Errorf("roll over ledger: %w", err)
	}
	return Decision{
		Path:              Classify(ledger),
		Ledger:            ledger,
		PurchasingEnabled: s.cfg.Stripe.Enabled(),
	}, nil
}

// Commit charges the ledger after a confirmed successful decode. Exactly one
// of the two paths is charged; a failed analysis must never reach here.
func (s *Server) Commit(ctx context.Context, userID string, path models.EntitlementPath) error {
	now := s.now()
	switch path {
	case models.PathFree:
		return s.store.CommitFreeUse(ctx, userID, models.DayUTC(now), now)
	case models.PathPaid:
		return s.store.CommitPaidUse(ctx, userID, now)
	default:
		return fmt.Errorf("cannot commit entitlement path %q", path)
	}
}

// now is indirect so tests can pin the clock across a simulated day change.
func (s *Server) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now()
}
