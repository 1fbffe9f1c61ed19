package telemetry

import (
	"database/sql"

	"codeberg.org/velka/musedaq/internal/errors"
)

// initSchema creates the acquisition statistics table
func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS acquisition (
            timestamp INTEGER NOT NULL,
            group_name TEXT NOT NULL,
            cycle_us INTEGER,
            rows INTEGER,
            ready INTEGER,
            PRIMARY KEY (timestamp, group_name)
        )
    `)
	if err != nil {
		return errors.New().Wrap(ErrStorageInit, err)
	}

	return nil
}
