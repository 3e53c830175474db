package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matthgross1/message-intent-lab/app/models"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		credits int
		free    int
		want    models.EntitlementPath
	}{
		{"new user", 0, 0, models.PathFree},
		{"one free used", 0, 1, models.PathFree},
		{"at free cap", 0, 2, models.PathBlocked},
		{"over free cap", 0, 5, models.PathBlocked},
		{"credits trump free allowance", 3, 0, models.PathPaid},
		{"credits trump free cap", 3, 2, models.PathPaid},
		{"single credit", 1, 99, models.PathPaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger := models.Ledger{
				PaidDecodeCredits: tc.credits,
				FreeUsesToday:     tc.free,
			}
			if got := Classify(ledger); got != tc.want {
				t.Fatalf("Classify(credits=%d, free=%d) = %q, want %q", tc.credits, tc.free, got, tc.want)
			}
		})
	}
}

func TestScenarioFreeTierExhaustion(t *testing.T) {
	server, _, _ := newTestServer(t, false, nil)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		decision, err := server.Evaluate(ctx, "user-a")
		if err != nil {
			t.Fatalf("Evaluate #%d error = %v", i, err)
		}
		if decision.Path != models.PathFree {
			t.Fatalf("Evaluate #%d path = %q, want free", i, decision.Path)
		}
		if err := server.Commit(ctx, "user-a", decision.Path); err != nil {
			t.Fatalf("Commit #%d error = %v", i, err)
		}
	}

	decision, err := server.Evaluate(ctx, "user-a")
	if err != nil {
		t.Fatalf("Evaluate #3 error = %v", err)
	}
	if decision.Path != models.PathBlocked {
		t.Fatalf("Evaluate #3 path = %q, want blocked", decision.Path)
	}
	if decision.Ledger.FreeUsesToday != 2 {
		t.Fatalf("free_uses_today = %d, want 2", decision.Ledger.FreeUsesToday)
	}
	if decision.Ledger.TotalDecodes != 2 {
		t.Fatalf("total_decodes = %d, want 2", decision.Ledger.TotalDecodes)
	}
}

func TestScenarioPaidPreferredAtCap(t *testing.T) {
	server, store, now := newTestServer(t, false, nil)
	ctx := context.Background()

	// Burn the free allowance, then grant a 3-credit pack.
	for i := 0; i < 2; i++ {
		if _, err := server.Evaluate(ctx, "user-b"); err != nil {
			t.Fatalf("Evaluate error = %v", err)
		}
		if err := server.Commit(ctx, "user-b", models.PathFree); err != nil {
			t.Fatalf("Commit error = %v", err)
		}
	}
	if _, err := store.GrantCredits(ctx, "evt_grant", "user-b", 3, *now); err != nil {
		t.Fatalf("GrantCredits error = %v", err)
	}

	decision, err := server.Evaluate(ctx, "user-b")
	if err != nil {
		t.Fatalf("Evaluate error = %v", err)
	}
	if decision.Path != models.PathPaid {
		t.Fatalf("path = %q, want paid", decision.Path)
	}

	if err := server.Commit(ctx, "user-b", decision.Path); err != nil {
		t.Fatalf("Commit paid error = %v", err)
	}

	ledger, err := store.LoadOrCreate(ctx, "user-b", *now)
	if err != nil {
		t.Fatalf("LoadOrCreate error = %v", err)
	}
	if ledger.PaidDecodeCredits != 2 {
		t.Fatalf("paid_decode_credits = %d, want 2", ledger.PaidDecodeCredits)
	}
	if ledger.LifetimePaidDecodes != 1 {
		t.Fatalf("lifetime_paid_decodes = %d, want 1", ledger.LifetimePaidDecodes)
	}
	if ledger.FreeUsesToday != 2 {
		t.Fatalf("free_uses_today = %d, want unchanged 2", ledger.FreeUsesToday)
	}
	if ledger.TotalDecodes != 3 {
		t.Fatalf("total_decodes = %d, want 3", ledger.TotalDecodes)
	}
}

func TestScenarioStaleRecordRollsOver(t *testing.T) {
	server, _, now := newTestServer(t, false, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := server.Evaluate(ctx, "user-c"); err != nil {
			t.Fatalf("Evaluate error = %v", err)
		}
		if err := server.Commit(ctx, "user-c", models.PathFree); err != nil {
			t.Fatalf("Commit error = %v", err)
		}
	}

	*now = now.AddDate(0, 0, 3)

	decision, err := server.Evaluate(ctx, "user-c")
	if err != nil {
		t.Fatalf("Evaluate error = %v", err)
	}
	if decision.Path != models.PathFree {
		t.Fatalf("path after rollover = %q, want free", decision.Path)
	}
	if decision.Ledger.FreeUsesToday != 0 {
		t.Fatalf("free_uses_today after rollover = %d, want 0", decision.Ledger.FreeUsesToday)
	}
	if decision.Ledger.FreeUsesDate != models.DayUTC(*now) {
		t.Fatalf("free_uses_date = %q, want %q", decision.Ledger.FreeUsesDate, models.DayUTC(*now))
	}
}

func TestStaleRecordEvaluatesLikeFresh(t *testing.T) {
	server, _, now := newTestServer(t, false, nil)
	ctx := context.Background()

	// Any stale usage count must be indistinguishable from a new record.
	for _, used := range []int{0, 1, 2, 7} {
		userID := "stale-" + string(rune('a'+used))
		for i := 0; i < used; i++ {
			if _, err := server.Evaluate(ctx, userID); err != nil {
				t.Fatalf("Evaluate error = %v", err)
			}
			_ = server.Commit(ctx, userID, models.PathFree)
		}
	}

	*now = now.AddDate(0, 0, 1)

	fresh, err := server.Evaluate(ctx, "brand-new")
	if err != nil {
		t.Fatalf("Evaluate fresh error = %v", err)
	}
	for _, used := range []int{0, 1, 2, 7} {
		userID := "stale-" + string(rune('a'+used))
		decision, err := server.Evaluate(ctx, userID)
		if err != nil {
			t.Fatalf("Evaluate %s error = %v", userID, err)
		}
		if decision.Path != fresh.Path {
			t.Fatalf("stale(used=%d) path = %q, fresh path = %q", used, decision.Path, fresh.Path)
		}
		if decision.Ledger.FreeUsesToday != fresh.Ledger.FreeUsesToday {
			t.Fatalf("stale(used=%d) free_uses_today = %d, fresh = %d",
				used, decision.Ledger.FreeUsesToday, fresh.Ledger.FreeUsesToday)
		}
	}
}

func TestCommitUnknownPath(t *testing.T) {
	server, _, _ := newTestServer(t, false, nil)
	if err := server.Commit(context.Background(), "user-x", models.PathBlocked); err == nil {
		t.Fatal("Commit(blocked) should error")
	}
}

func TestCommitPaidWithoutCredits(t *testing.T) {
	server, store, now := newTestServer(t, false, nil)
	ctx := context.Background()

	if _, err := server.Evaluate(ctx, "user-d"); err != nil {
		t.Fatalf("Evaluate error = %v", err)
	}

	err := server.Commit(ctx, "user-d", models.PathPaid)
	if !errors.Is(err, ErrNoCredits) {
		t.Fatalf("Commit paid with zero credits error = %v, want ErrNoCredits", err)
	}

	ledger, err := store.LoadOrCreate(ctx, "user-d", *now)
	if err != nil {
		t.Fatalf("LoadOrCreate error = %v", err)
	}
	if ledger.PaidDecodeCredits != 0 || ledger.LifetimePaidDecodes != 0 || ledger.TotalDecodes != 0 {
		t.Fatalf("failed paid commit mutated ledger: %+v", ledger)
	}
}

func TestFreeRemaining(t *testing.T) {
	day := "2026-03-14"
	cases := []struct {
		name   string
		ledger models.Ledger
		want   int
	}{
		{"fresh", models.Ledger{FreeUsesDate: day}, 2},
		{"one used", models.Ledger{FreeUsesDate: day, FreeUsesToday: 1}, 1},
		{"at cap", models.Ledger{FreeUsesDate: day, FreeUsesToday: 2}, 0},
		{"over cap clamps", models.Ledger{FreeUsesDate: day, FreeUsesToday: 9}, 0},
		{"stale date counts as full", models.Ledger{FreeUsesDate: "2026-03-10", FreeUsesToday: 2}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ledger.FreeRemaining(day); got != tc.want {
				t.Fatalf("FreeRemaining = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDayUTCCrossesMidnight(t *testing.T) {
	lateNight := time.Date(2026, time.March, 14, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	if got := models.DayUTC(lateNight); got != "2026-03-15" {
		t.Fatalf("DayUTC = %q, want UTC date 2026-03-15", got)
	}
}
