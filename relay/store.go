// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/doula/lib/clock"
)

// DefaultTTL is how long a posted blob stays retrievable. Long enough
// to cover the host's five-minute answer wait with slack for clock skew
// between relay instances behind a load balancer.
const DefaultTTL = 10 * time.Minute

const mailboxSchema = `
	CREATE TABLE IF NOT EXISTS mailbox (
		room_key   TEXT NOT NULL,
		slot       TEXT NOT NULL,
		body       TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		PRIMARY KEY (room_key, slot)
	);
	CREATE INDEX IF NOT EXISTS idx_mailbox_expiry ON mailbox(expires_at);
`

// Pragmas for the mailbox workload: tiny rows, write-mostly, nothing
// durable past the TTL. WAL keeps GETs from blocking PUTs; NORMAL
// synchronous survives a process crash, which is all a ten-minute
// mailbox needs.
var mailboxPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

// Store persists mailbox slots in SQLite. Expiry is enforced on read
// (an expired row is invisible before the sweep deletes it) so the
// sweep cadence never affects correctness, only disk usage.
//
// Store is safe for concurrent use; each request borrows a pooled
// connection for the duration of one statement.
type Store struct {
	pool   *sqlitex.Pool
	clock  clock.Clock
	logger *slog.Logger
	ttl    time.Duration
	path   string
}

// StoreConfig holds the parameters for opening a mailbox store.
type StoreConfig struct {
	// Path is the SQLite database file. ":memory:" works for tests.
	Path string

	// TTL is how long entries stay retrievable. Zero means DefaultTTL.
	TTL time.Duration

	// Clock drives expiry. Nil means the real clock.
	Clock clock.Clock

	// Logger receives operational messages. Nil means discard.
	Logger *slog.Logger
}

// OpenStore opens (creating if necessary) the mailbox database and
// applies the schema.
func OpenStore(cfg StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("relay store: Path is required")
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	// A handful of connections is plenty: SQLite serializes the writes
	// anyway, and the extra connections only serve concurrent GET
	// polls. In-memory databases are per-connection, so tests get one.
	poolSize := 4
	uri := cfg.Path
	if cfg.Path == ":memory:" {
		poolSize = 1
		// sqlitex.NewPool rejects the bare ":memory:" spelling and
		// requires the URI form for in-memory databases.
		uri = "file::memory:?mode=memory&cache=shared"
	}

	pool, err := sqlitex.NewPool(uri, sqlitex.PoolOptions{
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			for _, pragma := range mailboxPragmas {
				if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
					return fmt.Errorf("%s: %w", pragma, err)
				}
			}
			return sqlitex.ExecuteScript(conn, mailboxSchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("relay store: opening %s: %w", cfg.Path, err)
	}

	logger.Info("mailbox store opened", "path", cfg.Path, "ttl", ttl)
	return &Store{pool: pool, clock: clk, logger: logger, ttl: ttl, path: cfg.Path}, nil
}

// Put stores body in the slot, replacing any previous entry and
// restarting its TTL.
func (s *Store) Put(ctx context.Context, roomKey, slot, body string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("relay store: %w", err)
	}
	defer s.pool.Put(conn)

	expiresAt := s.clock.Now().Add(s.ttl).UnixMilli()
	err = sqlitex.Execute(conn,
		`INSERT INTO mailbox (room_key, slot, body, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (room_key, slot) DO UPDATE
		 SET body = excluded.body, expires_at = excluded.expires_at`,
		&sqlitex.ExecOptions{
			Args: []any{roomKey, slot, body, expiresAt},
		})
	if err != nil {
		return fmt.Errorf("relay store: put %s/%s: %w", roomKey, slot, err)
	}
	return nil
}

// Get returns the slot's body, or ok=false when the slot is empty or
// its entry has expired.
func (s *Store) Get(ctx context.Context, roomKey, slot string) (body string, ok bool, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", false, fmt.Errorf("relay store: %w", err)
	}
	defer s.pool.Put(conn)

	now := s.clock.Now().UnixMilli()
	err = sqlitex.Execute(conn,
		`SELECT body FROM mailbox
		 WHERE room_key = ? AND slot = ? AND expires_at > ?`,
		&sqlitex.ExecOptions{
			Args: []any{roomKey, slot, now},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				body = stmt.ColumnText(0)
				ok = true
				return nil
			},
		})
	if err != nil {
		return "", false, fmt.Errorf("relay store: get %s/%s: %w", roomKey, slot, err)
	}
	return body, ok, nil
}

// Sweep deletes expired entries and reports how many were removed.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("relay store: %w", err)
	}
	defer s.pool.Put(conn)

	now := s.clock.Now().UnixMilli()
	err = sqlitex.Execute(conn,
		`DELETE FROM mailbox WHERE expires_at <= ?`,
		&sqlitex.ExecOptions{Args: []any{now}})
	if err != nil {
		return 0, fmt.Errorf("relay store: sweep: %w", err)
	}
	return conn.Changes(), nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("relay store: closing %s: %w", s.path, err)
	}
	return nil
}
