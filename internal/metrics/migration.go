package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/ipmifanctl/internal/logger"
)

// ValidateAndUpdateSchema brings db to SchemaVersion. An empty database is
// initialized. A database at any other version is copied into backupDir and
// then recreated; journal rows are not migrated.
func ValidateAndUpdateSchema(db *sql.DB, backupDir string, log logger.Logger) error {
	version, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}

	log.Debug().
		Int("version", version).
		Int("want", SchemaVersion).
		Msg("Checking cycle journal schema")

	switch version {
	case SchemaVersion:
		return nil
	case 0:
		// Nothing worth keeping.
	default:
		if _, err := backupDatabase(db, backupDir, version, log); err != nil {
			return err
		}
	}

	if err := dropTables(db, log); err != nil {
		return err
	}

	return InitSchema(db, log)
}

func backupDatabase(db *sql.DB, backupDir string, version int, log logger.Logger) (string, error) {
	if err := os.MkdirAll(backupDir, defaultDirPerm); err != nil {
		return "", phaseError(ErrSchemaMigrationFailed, "create_backup_dir", backupDir, err)
	}

	name := fmt.Sprintf("cycles_v%d_%s.db", version, time.Now().UTC().Format("20060102T150405Z"))
	backupPath := filepath.Join(backupDir, name)

	// VACUUM INTO does not take bind parameters.
	quoted := strings.ReplaceAll(backupPath, "'", "''")
	if _, err := db.Exec("VACUUM INTO '" + quoted + "'"); err != nil {
		return "", phaseError(ErrSchemaMigrationFailed, "backup", backupPath, err)
	}

	log.Info().
		Str("path", backupPath).
		Int("version", version).
		Msg("Cycle journal backed up before schema change")

	return backupPath, nil
}

func dropTables(db *sql.DB, log logger.Logger) error {
	return inTx(db, ErrSchemaMigrationFailed, log, func(tx *sql.Tx) error {
		for _, table := range journalTables {
			if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				return phaseError(ErrSchemaMigrationFailed, "drop_table", table, err)
			}
		}
		return nil
	})
}
