package database

import (
	"fmt"
	"os"
	"path/filepath"

	"horus-go/internal/config"
	"horus-go/internal/horus"
)

// JournalFileName is the name of the journal database inside the data dir.
const JournalFileName = "journal.db"

// NewJournalFromConfig creates a Journal implementation based on the journal config type.
func NewJournalFromConfig(cfg config.JournalConfig, clock horus.Clock) (horus.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite journal")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		return NewSQLiteJournal(filepath.Join(cfg.DataDir, JournalFileName), clock)
	case "memory":
		return NewSQLiteJournal(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}
