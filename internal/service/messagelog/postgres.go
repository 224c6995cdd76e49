package messagelog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/Victorugws/swift/internal/model/conversation"
)

const insertMessagePostgres = `INSERT INTO messages (user_id, role, content, "timestamp", source) VALUES ($1, $2, $3, $4, $5)`

// PostgresStore writes to the messages table of a Postgres (Supabase) database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and verifies the connection.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("messagelog: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("messagelog: ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate brings the schema up to date.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()
	return Migrate(ctx, db, goose.DialectPostgres)
}

// Append implements Store.
func (s *PostgresStore) Append(ctx context.Context, rec conversation.LogRecord) error {
	_, err := s.pool.Exec(ctx, insertMessagePostgres,
		rec.UserID, string(rec.Role), rec.Content, rec.Timestamp.UTC(), string(rec.Source))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
