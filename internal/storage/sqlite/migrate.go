package sqlite

import (
	"clipvault/internal/storage"
	"clipvault/pkg/types"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

const currentSchemaVersion = 2

// runMigrations brings the on-disk schema up to currentSchemaVersion. A
// fresh database is created directly at the current version. Migrations
// commit their version bump last, so an interrupted run retries from the
// last committed version.
func (s *SQLiteStore) runMigrations() error {
	version, err := s.schemaVersion()
	if err != nil {
		return err
	}

	if version == 0 {
		return s.initialize()
	}

	if version < 2 {
		if err := s.migrateToV2(); err != nil {
			return fmt.Errorf("migration to v2 failed: %w", err)
		}
	}

	return nil
}

// schemaVersion returns the on-disk schema version: 0 for a fresh
// database, 1 for a pre-versioning database, else the recorded version.
func (s *SQLiteStore) schemaVersion() (int, error) {
	if !s.tableExists("items") {
		return 0, nil
	}
	if !s.tableExists("schema_migrations") {
		return 1, nil
	}

	var version int
	err := s.db.Raw("SELECT COALESCE(MAX(version), 1) FROM schema_migrations").Scan(&version).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// initialize creates the current schema on a fresh database.
func (s *SQLiteStore) initialize() error {
	if err := s.db.AutoMigrate(&storage.ItemModel{}); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`).Error; err != nil {
		return fmt.Errorf("failed to create version table: %w", err)
	}
	err := s.db.Exec(`INSERT OR REPLACE INTO schema_migrations (version) VALUES (?)`, currentSchemaVersion).Error
	if err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}

// migrateToV2 rewrites the v1 layout: it adds the bounded preview and the
// in-row payload column, inlines small blob files, and retires the
// blob_path and unbounded content columns. Rows that fail to transform are
// deleted and counted; a DDL failure aborts the migration.
func (s *SQLiteStore) migrateToV2() error {
	type columnDef struct{ name, ddl string }
	added := []columnDef{
		{"preview", `ALTER TABLE items ADD COLUMN preview TEXT NOT NULL DEFAULT ''`},
		{"data", `ALTER TABLE items ADD COLUMN data BLOB`},
		{"has_blob", `ALTER TABLE items ADD COLUMN has_blob NUMERIC NOT NULL DEFAULT 0`},
	}
	for _, col := range added {
		if s.columnExists("items", col.name) {
			continue
		}
		if err := s.db.Exec(col.ddl).Error; err != nil {
			return err
		}
	}

	// An interrupted run may already have dropped the old columns; the row
	// transform only applies while they are present.
	if s.columnExists("items", "content") {
		skipped, err := s.rewriteRowsForV2()
		if err != nil {
			return err
		}
		if skipped > 0 {
			log.Printf("schema migration: skipped %d row(s) that failed to transform", skipped)
		}
	}

	for _, col := range []string{"content", "blob_path"} {
		if !s.columnExists("items", col) {
			continue
		}
		if err := s.db.Exec(fmt.Sprintf(`ALTER TABLE items DROP COLUMN %s`, col)).Error; err != nil {
			return err
		}
	}

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_items_hash ON items(content_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_items_timestamp ON items(timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_items_fav_ts ON items(is_favorite, timestamp)`,
	}
	for _, idx := range indexes {
		if err := s.db.Exec(idx).Error; err != nil {
			return err
		}
	}

	if err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`).Error; err != nil {
		return err
	}
	return s.db.Exec(`INSERT OR REPLACE INTO schema_migrations (version) VALUES (?)`, 2).Error
}

// rewriteRowsForV2 computes the preview and payload columns for every v1
// row. Rows that already carry a payload were transformed by an earlier
// interrupted run (whose blob file may be gone) and keep it. Returns the
// number of rows that were dropped because they could not be transformed.
func (s *SQLiteStore) rewriteRowsForV2() (int, error) {
	type v1Row struct {
		ID       uint64
		Content  string
		BlobPath string
		Data     []byte
		HasBlob  bool
	}

	var rows []v1Row
	err := s.db.Raw(`SELECT id, COALESCE(content, '') AS content, COALESCE(blob_path, '') AS blob_path,
		data, has_blob FROM items`).
		Scan(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read v1 rows: %w", err)
	}

	skipped := 0
	for _, row := range rows {
		preview := types.Preview(row.Content, s.previewLength)
		data := row.Data
		hasBlob := row.HasBlob

		transformed := len(data) > 0 || hasBlob
		if row.BlobPath != "" && !transformed {
			payload, err := os.ReadFile(filepath.Join(s.blobPath, row.BlobPath))
			if err != nil {
				log.Printf("schema migration: dropping item %d: %v", row.ID, err)
				if delErr := s.db.Exec(`DELETE FROM items WHERE id = ?`, row.ID).Error; delErr != nil {
					return skipped, fmt.Errorf("failed to drop untransformable row %d: %w", row.ID, delErr)
				}
				skipped++
				continue
			}
			if int64(len(payload)) <= s.inlineLimit {
				data = payload
				// Inlined; the loose file is no longer referenced.
				_ = os.Remove(filepath.Join(s.blobPath, row.BlobPath))
			} else {
				hasBlob = true
			}
		} else if row.BlobPath == "" && !transformed && len([]rune(row.Content)) > s.previewLength {
			// Preview is a truncation; keep the full text in-row.
			data = []byte(row.Content)
		}

		err := s.db.Exec(
			`UPDATE items SET preview = ?, data = ?, has_blob = ? WHERE id = ?`,
			preview, data, hasBlob, row.ID,
		).Error
		if err != nil {
			log.Printf("schema migration: dropping item %d: %v", row.ID, err)
			if delErr := s.db.Exec(`DELETE FROM items WHERE id = ?`, row.ID).Error; delErr != nil {
				return skipped, fmt.Errorf("failed to drop untransformable row %d: %w", row.ID, delErr)
			}
			skipped++
		}
	}

	return skipped, nil
}

func (s *SQLiteStore) tableExists(name string) bool {
	var count int64
	err := s.db.Raw(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).
		Scan(&count).Error
	return err == nil && count > 0
}

func (s *SQLiteStore) columnExists(table, column string) bool {
	var count int64
	err := s.db.Raw(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).
		Scan(&count).Error
	return err == nil && count > 0
}
