package metrics

import (
	"database/sql"

	"codeberg.org/mutker/ipmifanctl/internal/errors"
	"codeberg.org/mutker/ipmifanctl/internal/logger"
)

const SchemaVersion = 1

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS cycles (
    id           TEXT PRIMARY KEY,
    started_at   INTEGER NOT NULL CHECK (typeof(started_at) = 'integer'),
    finished_at  INTEGER NOT NULL CHECK (typeof(finished_at) = 'integer'),
    host         TEXT NOT NULL,
    temperature  REAL,
    duty         INTEGER CHECK (duty IS NULL OR duty BETWEEN 0 AND 100),
    action       TEXT NOT NULL CHECK (action IN ('applied', 'no_reading', 'no_band', 'failed')),
    error_code   TEXT,
    error_detail TEXT
);
CREATE INDEX IF NOT EXISTS cycles_started_at ON cycles (started_at);`

const recordVersionSQL = `
INSERT INTO schema_versions (version, applied_at)
VALUES (?, datetime('now'))`

const insertCycleSQL = `
INSERT INTO cycles (
    id, started_at, finished_at, host,
    temperature, duty, action,
    error_code, error_detail
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// journalTables are dropped, in order, when the schema is recreated.
var journalTables = []string{"cycles", "schema_versions"}

// inTx runs fn in a transaction, rolling back unless fn succeeds and the
// commit goes through.
func inTx(db *sql.DB, code errors.ErrorCode, log logger.Logger, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.New().Wrap(code, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Debug().Err(rbErr).Msg("Failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return phaseError(code, "commit", "", err)
	}

	return nil
}

// InitSchema creates the journal tables and records SchemaVersion.
func InitSchema(db *sql.DB, log logger.Logger) error {
	log.Debug().Msg("Creating cycle journal schema...")

	err := inTx(db, ErrSchemaInitFailed, log, func(tx *sql.Tx) error {
		if _, err := tx.Exec(createTablesSQL); err != nil {
			return phaseError(ErrSchemaInitFailed, "create_tables", "", err)
		}
		if _, err := tx.Exec(recordVersionSQL, SchemaVersion); err != nil {
			return phaseError(ErrSchemaInitFailed, "record_version", "schema_versions", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Int("version", SchemaVersion).
		Msg("Schema initialized successfully")

	return nil
}

// GetSchemaVersion returns the recorded schema version, 0 for an empty
// database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	exists, err := TableExists(db, "schema_versions")
	if err != nil || !exists {
		return 0, err
	}

	var version int
	err = db.QueryRow(`SELECT version FROM schema_versions ORDER BY version DESC LIMIT 1`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, phaseError(ErrSchemaValidationFailed, "get_version", "schema_versions", err)
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type='table' AND name=?)`,
		tableName,
	).Scan(&exists)
	if err != nil {
		return false, phaseError(ErrSchemaValidationFailed, "check_table_exists", tableName, err)
	}

	return exists, nil
}
