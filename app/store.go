package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/matthgross1/message-intent-lab/app/models"
)

// ErrNoCredits is returned by CommitPaidUse when the conditional decrement
// found no remaining paid credits. The row is left untouched.
var ErrNoCredits = errors.New("no paid credits remaining")

// LedgerStore owns all reads and writes of ledger rows. Every mutation is a
// single atomic storage operation; in particular the paid decrement and the
// insert-if-absent must be enforced by the store, not pre-checked by callers.
type LedgerStore interface {
	// LoadOrCreate returns the ledger for id, creating a zeroed row dated
	// now if absent. Concurrent calls for the same new id must not produce
	// duplicates; on conflict the existing row is re-read and returned.
	LoadOrCreate(ctx context.Context, id string, now time.Time) (models.Ledger, error)

	// RollOverIfStale resets free_uses_today when the row's date is not
	// dayUTC, then re-reads. Callers must evaluate entitlement against the
	// returned row, never against earlier in-memory state.
	RollOverIfStale(ctx context.Context, id string, dayUTC string) (models.Ledger, bool, error)

	// CommitFreeUse charges one free decode: free_uses_today+1,
	// total_decodes+1, last_decode_at=now, free_uses_date=dayUTC.
	CommitFreeUse(ctx context.Context, id string, dayUTC string, now time.Time) error

	// CommitPaidUse charges one paid decode, decrementing credits only while
	// strictly positive. Returns ErrNoCredits (and changes nothing) when the
	// balance is already zero.
	CommitPaidUse(ctx context.Context, id string, now time.Time) error

	// GrantCredits adds amount paid credits, creating the row dated now if
	// the webhook arrives before the identity's first page load wrote one.
	// eventID deduplicates redelivered payment events: the grant and the
	// event record are applied atomically, and a previously recorded
	// eventID makes the call a no-op reporting applied=false.
	GrantCredits(ctx context.Context, eventID, id string, amount int, now time.Time) (applied bool, err error)
}

type pgLedgerStore struct {
	db *sql.DB
}

// NewPostgresLedgerStore wraps an open Postgres handle in a LedgerStore.
func NewPostgresLedgerStore(db *sql.DB) LedgerStore {
	return &pgLedgerStore{db: db}
}

func (s *pgLedgerStore) LoadOrCreate(ctx context.Context, id string, now time.Time) (models.Ledger, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledgers (id, created_at, free_uses_today, free_uses_date)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (id) DO NOTHING;
	`, id, now.UTC(), models.DayUTC(now))
	if err != nil {
		return models.Ledger{}, err
	}
	return s.load(ctx, id)
}

func (s *pgLedgerStore) load(ctx context.Context, id string) (models.Ledger, error) {
	var (
		ledger       models.Ledger
		lastDecodeAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, free_uses_today, free_uses_date,
		       total_decodes, last_decode_at, paid_decode_credits, lifetime_paid_decodes
		FROM ledgers
		WHERE id = $1;
	`, id).Scan(
		&ledger.ID,
		&ledger.CreatedAt,
		&ledger.FreeUsesToday,
		&ledger.FreeUsesDate,
		&ledger.TotalDecodes,
		&lastDecodeAt,
		&ledger.PaidDecodeCredits,
		&ledger.LifetimePaidDecodes,
	)
	if err != nil {
		return models.Ledger{}, err
	}
	if lastDecodeAt.Valid {
		t := lastDecodeAt.Time
		ledger.LastDecodeAt = &t
	}
	return ledger, nil
}

func (s *pgLedgerStore) RollOverIfStale(ctx context.Context, id string, dayUTC string) (models.Ledger, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledgers
		SET free_uses_today = 0, free_uses_date = $2
		WHERE id = $1 AND free_uses_date <> $2;
	`, id, dayUTC)
	if err != nil {
		return models.Ledger{}, false, err
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return models.Ledger{}, false, err
	}
	ledger, err := s.load(ctx, id)
	if err != nil {
		return models.Ledger{}, false, err
	}
	return ledger, changed > 0, nil
}

func (s *pgLedgerStore) CommitFreeUse(ctx context.Context, id string, dayUTC string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledgers
		SET free_uses_today = free_uses_today + 1,
		    free_uses_date  = $2,
		    total_decodes   = total_decodes + 1,
		    last_decode_at  = $3
		WHERE id = $1;
	`, id, dayUTC, now.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *pgLedgerStore) CommitPaidUse(ctx context.Context, id string, now time.Time) error {
	// The credits guard lives in the WHERE clause so the check and the
	// decrement are one atomic statement.
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledgers
		SET paid_decode_credits   = paid_decode_credits - 1,
		    lifetime_paid_decodes = lifetime_paid_decodes + 1,
		    total_decodes         = total_decodes + 1,
		    last_decode_at        = $2
		WHERE id = $1 AND paid_decode_credits > 0;
	`, id, now.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoCredits
	}
	return nil
}

func (s *pgLedgerStore) GrantCredits(ctx context.Context, eventID, id string, amount int, now time.Time) (bool, error) {
	if amount <= 0 {
		return false, errors.New("credit amount must be positive")
	}

	// Event record and grant commit together so a redelivered event can
	// neither double-grant nor get acknowledged without its grant applying.
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO stripe_events (event_id)
		VALUES ($1)
		ON CONFLICT (event_id) DO NOTHING;
	`, eventID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledgers (id, created_at, free_uses_today, free_uses_date, paid_decode_credits)
		VALUES ($1, $2, 0, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET paid_decode_credits = ledgers.paid_decode_credits + EXCLUDED.paid_decode_credits;
	`, id, now.UTC(), models.DayUTC(now), amount)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
