// Package models defines the per-identity usage ledger and credit pack types.
package models

import "time"

// EntitlementPath classifies how a decode request may proceed.
type EntitlementPath string

const (
	PathFree    EntitlementPath = "free"
	PathPaid    EntitlementPath = "paid"
	PathBlocked EntitlementPath = "blocked"
)

// FreeDailyLimit is the number of free decodes allowed per UTC day.
const FreeDailyLimit = 2

// Ledger is one row per anonymous identity. FreeUsesToday is meaningful only
// while FreeUsesDate equals the current UTC date; stale rows must be rolled
// over before evaluation.
type Ledger struct {
	ID                  string     `db:"id"`
	CreatedAt           time.Time  `db:"created_at"`
	FreeUsesToday       int        `db:"free_uses_today"`
	FreeUsesDate        string     `db:"free_uses_date"` // "2006-01-02", UTC
	TotalDecodes        int        `db:"total_decodes"`
	LastDecodeAt        *time.Time `db:"last_decode_at"`
	PaidDecodeCredits   int        `db:"paid_decode_credits"`
	LifetimePaidDecodes int        `db:"lifetime_paid_decodes"`
}

// FreeRemaining returns how many free decodes are left for dayUTC.
func (l Ledger) FreeRemaining(dayUTC string) int {
	if l.FreeUsesDate != dayUTC {
		return FreeDailyLimit
	}
	remaining := FreeDailyLimit - l.FreeUsesToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

// DayUTC formats t as the UTC calendar date used in FreeUsesDate.
func DayUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// CreditPackSizes enumerates the purchasable pack sizes. Each pack grants
// exactly its size in paid decode credits.
var CreditPackSizes = []int{10, 25, 50}

// ValidPackSize reports whether size is a purchasable pack.
func ValidPackSize(size int) bool {
	for _, s := range CreditPackSizes {
		if s == size {
			return true
		}
	}
	return false
}
