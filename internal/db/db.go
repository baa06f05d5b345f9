package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory store.
const MemoryPath = ":memory:"

// connPragmas apply to every pooled connection, so they travel in the DSN.
var connPragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// OpenDB opens (creating when needed) the planloom store at path and
// migrates it. A file store runs in WAL mode so a CLI invocation can read
// while another holds a scenario lock and writes. MemoryPath is pinned to
// one connection; a second one would see a different, empty database.
func OpenDB(path string) (*sql.DB, error) {
	memory := path == MemoryPath
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	if memory {
		conn.SetMaxOpenConns(1)
	}

	setup := []string{"PRAGMA foreign_keys = ON"}
	if !memory {
		setup = append(setup, "PRAGMA journal_mode = WAL")
	}
	for _, stmt := range setup {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", stmt, err)
		}
	}

	if err := Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	return conn, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range connPragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}
