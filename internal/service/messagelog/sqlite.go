package messagelog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/Victorugws/swift/internal/model/conversation"
)

const insertMessageSQLite = `INSERT INTO messages (user_id, role, content, timestamp, source) VALUES (?, ?, ?, ?, ?)`

// SQLiteStore writes to a local SQLite file. Suited to single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("messagelog: open sqlite: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("messagelog: ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("messagelog: configure sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Migrate brings the schema up to date.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return Migrate(ctx, s.db, goose.DialectSQLite3)
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, rec conversation.LogRecord) error {
	_, err := s.db.ExecContext(ctx, insertMessageSQLite,
		rec.UserID, string(rec.Role), rec.Content, rec.ISOTimestamp(), string(rec.Source))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
