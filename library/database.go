package library

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	jsoniter "github.com/json-iterator/go"
	_ "github.com/mattn/go-sqlite3"
)

const (
	dialectSQLite = "sqlite3"

	tableRecords  = "records"
	colCollection = "collection"
	colPosition   = "position"
	colPayload    = "payload"

	// documentPosition holds a collection saved as a single object.
	documentPosition = -1
)

// SQLiteStore keeps every collection in one SQLite table, one row per
// record in list order.
type SQLiteStore struct {
	db *sql.DB

	deleteStmt *sql.Stmt
	insertStmt *sql.Stmt
	selectStmt *sql.Stmt
}

// NewSQLiteStore opens (or creates) the database at dbPath, applies schema
// migrations, and prepares statements.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.prepareStatements(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// Close releases prepared statements and closes the DB.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.deleteStmt, s.insertStmt, s.selectStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
            collection TEXT NOT NULL,
            position INTEGER NOT NULL,
            payload TEXT NOT NULL,
            PRIMARY KEY (collection, position)
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// SchemaVersion reports the version recorded in the meta table.
func (s *SQLiteStore) SchemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&v)
	return v, err
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (s *SQLiteStore) prepareStatements() error {
	dialect := goqu.Dialect(dialectSQLite)

	deleteSQL, _, err := dialect.Delete(tableRecords).
		Where(goqu.C(colCollection).Eq("")).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	insertSQL, _, err := dialect.Insert(tableRecords).
		Cols(colCollection, colPosition, colPayload).
		Vals(goqu.Vals{"", 0, ""}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	selectSQL, _, err := dialect.From(tableRecords).
		Select(colPosition, colPayload).
		Where(goqu.C(colCollection).Eq("")).
		Order(goqu.I(colPosition).Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build select: %w", err)
	}

	if s.deleteStmt, err = s.db.Prepare(deleteSQL); err != nil {
		return err
	}
	if s.insertStmt, err = s.db.Prepare(insertSQL); err != nil {
		return err
	}
	if s.selectStmt, err = s.db.Prepare(selectSQL); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// RecordStore
// ---------------------------------------------------------------------------

func (s *SQLiteStore) Load(collection string, out any) error {
	rows, err := s.selectStmt.Query(collection)
	if err != nil {
		return fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var (
		payloads [][]byte
		document []byte
	)
	for rows.Next() {
		var (
			pos     int
			payload string
		)
		if err := rows.Scan(&pos, &payload); err != nil {
			return fmt.Errorf("scan %s: %w", collection, err)
		}
		if pos == documentPosition {
			document = []byte(payload)
			continue
		}
		payloads = append(payloads, []byte(payload))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read %s: %w", collection, err)
	}

	data := document
	if data == nil {
		if len(payloads) == 0 {
			return nil
		}
		data = append(append([]byte{'['}, bytes.Join(payloads, []byte{','})...), ']')
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptStore, collection, err)
	}
	return nil
}

// Save replaces collection in a single transaction. A list is stored one
// row per element; anything else is stored as one document row.
func (s *SQLiteStore) Save(collection string, records any) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}

	var rows []jsoniter.RawMessage
	trimmed := bytes.TrimSpace(data)
	isList := len(trimmed) > 0 && trimmed[0] == '['
	if isList {
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return fmt.Errorf("split %s: %w", collection, err)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Stmt(s.deleteStmt).Exec(collection); err != nil {
		return fmt.Errorf("clear %s: %w", collection, err)
	}
	insert := tx.Stmt(s.insertStmt)
	if !isList {
		if string(trimmed) != "null" {
			if _, err := insert.Exec(collection, documentPosition, string(trimmed)); err != nil {
				return fmt.Errorf("insert %s: %w", collection, err)
			}
		}
		return tx.Commit()
	}
	for i, row := range rows {
		if _, err := insert.Exec(collection, i, string(row)); err != nil {
			return fmt.Errorf("insert %s[%d]: %w", collection, i, err)
		}
	}
	return tx.Commit()
}
