package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/opencode-ai/lspbridge/internal/logging"
)

const databaseFile = "lspbridge.db"

// Provider opens the database backing the history service.
type Provider interface {
	// Connect opens and verifies the connection, applying any
	// driver-specific settings.
	Connect() (*sql.DB, error)

	// Dialect returns the SQL dialect name used by migrations.
	Dialect() string
}

// SQLiteProvider keeps the database in a file under the data directory.
type SQLiteProvider struct {
	dataDir string
}

func NewSQLiteProvider(dataDir string) *SQLiteProvider {
	return &SQLiteProvider{dataDir: dataDir}
}

// Path returns the database file location.
func (p *SQLiteProvider) Path() string {
	return filepath.Join(p.dataDir, databaseFile)
}

func (p *SQLiteProvider) Connect() (*sql.DB, error) {
	if p.dataDir == "" {
		return nil, fmt.Errorf("data directory is not set")
	}
	if err := os.MkdirAll(p.dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	pragmas := []string{
		"foreign_keys(1)",
		"journal_mode(wal)",
		"busy_timeout(5000)",
		"synchronous(normal)",
	}
	query := url.Values{"_pragma": pragmas, "_txlock": {"immediate"}}
	dsn := "file:" + filepath.ToSlash(p.Path()) + "?" + query.Encode()

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logging.Debug("database opened", "path", p.Path())
	return db, nil
}

func (p *SQLiteProvider) Dialect() string {
	return "sqlite3"
}

// IsUniqueViolation reports whether err was caused by a UNIQUE constraint.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, sqlite3.CONSTRAINT_UNIQUE)
}
