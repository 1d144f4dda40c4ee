package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore keeps counters in a translation_quota table.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenPostgres connects to dsn, verifies the connection and ensures the
// quota table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if err := migrateQuota(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate quota: %w", err)
	}
	return NewPostgresStore(db), nil
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func migrateQuota(ctx context.Context, db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS translation_quota (
		identity TEXT PRIMARY KEY,
		count INTEGER NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	);`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// The conflict branch only fires when the window has expired (reset to 1)
// or the count is under the limit; otherwise no row is returned.
const incrementQuery = `
	INSERT INTO translation_quota (identity, count, expires_at)
	VALUES ($1, 1, $3)
	ON CONFLICT (identity) DO UPDATE SET
		count = CASE WHEN translation_quota.expires_at <= $4 THEN 1
			ELSE translation_quota.count + 1 END,
		expires_at = CASE WHEN translation_quota.expires_at <= $4 THEN EXCLUDED.expires_at
			ELSE translation_quota.expires_at END
	WHERE translation_quota.expires_at <= $4 OR translation_quota.count < $2
	RETURNING count`

func (s *PostgresStore) IncrementIfUnder(ctx context.Context, identity string, limit int, window time.Duration) (int, bool, error) {
	now := s.now().UTC()

	var count int
	err := s.db.QueryRowContext(ctx, incrementQuery, identity, limit, now.Add(window), now).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return limit, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment quota: %w", err)
	}
	return count, true, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
