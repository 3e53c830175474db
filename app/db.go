// Package app implements the Message Intent Lab web application: the decode
// page, the usage ledger, and the Stripe credit pack billing flow.
package app

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/matthgross1/message-intent-lab/app/config"

	_ "github.com/lib/pq"
)

// MustOpenDB connects to Postgres and ensures the schema exists.
// It logs fatally on error; callers decide beforehand whether Postgres is
// configured at all (see config.PostgresConfig.Configured).
func MustOpenDB(cfg config.PostgresConfig) *sql.DB {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s",
		cfg.Username,
		cfg.Password,
		cfg.URL,
		cfg.Port,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("sql.Open: %v", err)
	}

	if err := db.Ping(); err != nil {
		log.Fatalf("db.Ping: %v", err)
	}

	if err := ensureSchema(db); err != nil {
		log.Fatalf("ensureSchema: %v", err)
	}

	log.Println("Connected to Postgres")
	return db
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ledgers (
			id                    TEXT PRIMARY KEY,
			created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
			free_uses_today       INT NOT NULL DEFAULT 0,
			free_uses_date        TEXT NOT NULL,
			total_decodes         INT NOT NULL DEFAULT 0,
			last_decode_at        TIMESTAMPTZ,
			paid_decode_credits   INT NOT NULL DEFAULT 0,
			lifetime_paid_decodes INT NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS stripe_events (
			event_id     TEXT PRIMARY KEY,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}
