package main

import (
	"log"

	"github.com/matthgross1/message-intent-lab/app"
	"github.com/matthgross1/message-intent-lab/app/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var store app.LedgerStore
	if cfg.DB.Configured() {
		store = app.NewPostgresLedgerStore(app.MustOpenDB(cfg.DB))
	} else {
		log.Println("POSTGRES_URL not set; using in-memory ledger store")
		store = app.NewMemoryLedgerStore()
	}

	analyzer, err := app.NewAnthropicAnalyzer(cfg.Anthropic)
	if err != nil {
		log.Fatalf("failed to initialize analyzer: %v", err)
	}

	server := app.NewServer(cfg, store, analyzer)
	router := server.NewRouter()
	if err := router.Run(cfg.Server.Addr); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
