package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// IsRemote reports whether dsn names a libSQL server rather than a local
// SQLite database.
func IsRemote(dsn string) bool {
	for _, scheme := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(dsn, scheme) {
			return true
		}
	}
	return false
}

// Open opens dsn: a libSQL URL, a file path, or ":memory:". authToken is
// sent to remote databases only.
func Open(dsn, authToken string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("open db: empty database url")
	}
	if IsRemote(dsn) {
		if authToken != "" {
			values := url.Values{}
			values.Add("authToken", authToken)
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + values.Encode()
		}
		db, err := sql.Open("libsql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return db, nil
	}

	path := strings.TrimPrefix(dsn, "file:")
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite takes one writer at a time; a single connection also keeps an
	// in-memory database alive for the life of the pool.
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("open db: %w", err)
		}
	}
	return db, nil
}

// Migrate applies the schema. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
