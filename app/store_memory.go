package app

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/matthgross1/message-intent-lab/app/models"
)

// memoryLedgerStore keeps ledgers in a map. It backs local development runs
// without Postgres and the test suite. Semantics mirror the Postgres store,
// including the conditional paid decrement and rollover.
type memoryLedgerStore struct {
	mu      sync.Mutex
	ledgers map[string]models.Ledger
	events  map[string]bool
}

// NewMemoryLedgerStore returns an empty in-memory LedgerStore.
func NewMemoryLedgerStore() LedgerStore {
	return &memoryLedgerStore{
		ledgers: make(map[string]models.Ledger),
		events:  make(map[string]bool),
	}
}

func (s *memoryLedgerStore) LoadOrCreate(_ context.Context, id string, now time.Time) (models.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ledger, ok := s.ledgers[id]; ok {
		return ledger, nil
	}
	ledger := models.Ledger{
		ID:           id,
		CreatedAt:    now.UTC(),
		FreeUsesDate: models.DayUTC(now),
	}
	s.ledgers[id] = ledger
	return ledger, nil
}

func (s *memoryLedgerStore) RollOverIfStale(_ context.Context, id string, dayUTC string) (models.Ledger, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.ledgers[id]
	if !ok {
		return models.Ledger{}, false, sql.ErrNoRows
	}
	changed := false
	if ledger.FreeUsesDate != dayUTC {
		ledger.FreeUsesToday = 0
		ledger.FreeUsesDate = dayUTC
		s.ledgers[id] = ledger
		changed = true
	}
	return ledger, changed, nil
}

func (s *memoryLedgerStore) CommitFreeUse(_ context.Context, id string, dayUTC string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.ledgers[id]
	if !ok {
		return sql.ErrNoRows
	}
	ledger.FreeUsesToday++
	ledger.FreeUsesDate = dayUTC
	ledger.TotalDecodes++
	at := now.UTC()
	ledger.LastDecodeAt = &at
	s.ledgers[id] = ledger
	return nil
}

func (s *memoryLedgerStore) CommitPaidUse(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.ledgers[id]
	if !ok {
		return sql.ErrNoRows
	}
	if ledger.PaidDecodeCredits <= 0 {
		return ErrNoCredits
	}
	ledger.PaidDecodeCredits--
	ledger.LifetimePaidDecodes++
	ledger.TotalDecodes++
	at := now.UTC()
	ledger.LastDecodeAt = &at
	s.ledgers[id] = ledger
	return nil
}

func (s *memoryLedgerStore) GrantCredits(_ context.Context, eventID, id string, amount int, now time.Time) (bool, error) {
	if amount <= 0 {
		return false, errors.New("credit amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events[eventID] {
		return false, nil
	}
	s.events[eventID] = true
	ledger, ok := s.ledgers[id]
	if !ok {
		ledger = models.Ledger{
			ID:           id,
			CreatedAt:    now.UTC(),
			FreeUsesDate: models.DayUTC(now),
		}
	}
	ledger.PaidDecodeCredits += amount
	s.ledgers[id] = ledger
	return true, nil
}
