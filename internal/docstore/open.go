package docstore

import (
	"database/sql"
	"fmt"

	"github.com/dohr-michael/askbetter/internal/config"
)

// Open returns the store selected by cfg. The sqlite driver requires db.
func Open(cfg config.StorageConfig, db *sql.DB) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		if db == nil {
			return nil, fmt.Errorf("sqlite document store: no database")
		}
		return NewSQLiteStore(db)
	case "file":
		return NewFileStore(cfg.Path), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
