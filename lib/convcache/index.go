// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convcache

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// defaultPoolSize bounds concurrent index connections. SQLite
// serializes writes regardless, and index statements are short.
const defaultPoolSize = 4

const indexSchema = `
CREATE TABLE IF NOT EXISTS entries (
	key             TEXT PRIMARY KEY,
	size            INTEGER NOT NULL,
	compressed_size INTEGER NOT NULL,
	compression     TEXT NOT NULL,
	triangles       INTEGER NOT NULL,
	stored_at       INTEGER NOT NULL,
	last_access     INTEGER NOT NULL,
	hits            INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS entries_last_access ON entries (last_access);
`

// Every connection gets these pragmas. synchronous=NORMAL survives
// process crashes; losing the index to an OS crash only costs hit
// counts, since the entry files are authoritative.
var indexPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA cache_size=-2048",
	"PRAGMA temp_store=MEMORY",
}

// indexRow is one row of the entries table.
type indexRow struct {
	Key            string
	Size           int64
	CompressedSize int64
	Compression    string
	Triangles      int64
	StoredAt       int64
	LastAccess     int64
	Hits           int64
}

// index wraps the SQLite connection pool holding the entries table.
type index struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

func openIndex(path string, poolSize int, logger *slog.Logger) (*index, error) {
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("convcache: opening index %s: %w", path, err)
	}
	logger.Info("cache index opened",
		"path", path,
		"pool_size", poolSize,
	)
	return &index{pool: pool, logger: logger, path: path}, nil
}

func prepareConnection(conn *sqlite.Conn) error {
	for _, pragma := range indexPragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("convcache: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, indexSchema, nil); err != nil {
		return fmt.Errorf("convcache: creating schema: %w", err)
	}
	return nil
}

func (x *index) close() error {
	if err := x.pool.Close(); err != nil {
		x.logger.Error("cache index close error",
			"path", x.path,
			"error", err,
		)
		return fmt.Errorf("convcache: closing index %s: %w", x.path, err)
	}
	return nil
}

// withConn runs f on a pooled connection.
func (x *index) withConn(ctx context.Context, f func(conn *sqlite.Conn) error) error {
	conn, err := x.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("convcache: taking index connection: %w", err)
	}
	defer x.pool.Put(conn)
	return f(conn)
}

// upsert records a stored entry, resetting its hit count.
func (x *index) upsert(ctx context.Context, row indexRow) error {
	return x.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			INSERT INTO entries
				(key, size, compressed_size, compression, triangles, stored_at, last_access, hits)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0)
			ON CONFLICT(key) DO UPDATE SET
				size = excluded.size,
				compressed_size = excluded.compressed_size,
				compression = excluded.compression,
				triangles = excluded.triangles,
				stored_at = excluded.stored_at,
				last_access = excluded.last_access,
				hits = 0`,
			&sqlitex.ExecOptions{
				Args: []any{row.Key, row.Size, row.CompressedSize, row.Compression,
					row.Triangles, row.StoredAt, row.LastAccess},
			})
	})
}

// touch counts a hit on key.
func (x *index) touch(ctx context.Context, key string, now int64) error {
	return x.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`UPDATE entries SET hits = hits + 1, last_access = ? WHERE key = ?`,
			&sqlitex.ExecOptions{Args: []any{now, key}})
	})
}

func (x *index) remove(ctx context.Context, key string) error {
	return x.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `DELETE FROM entries WHERE key = ?`,
			&sqlitex.ExecOptions{Args: []any{key}})
	})
}

// leastRecentlyUsed returns every row, oldest access first.
func (x *index) leastRecentlyUsed(ctx context.Context) ([]indexRow, error) {
	var rows []indexRow
	err := x.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT key, size, compressed_size, compression, triangles, stored_at, last_access, hits
			FROM entries ORDER BY last_access ASC, key ASC`,
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					rows = append(rows, scanRow(stmt))
					return nil
				},
			})
	})
	return rows, err
}

func (x *index) stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := x.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT count(*), coalesce(sum(size), 0), coalesce(sum(compressed_size), 0), coalesce(sum(hits), 0)
			FROM entries`,
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					stats.Entries = stmt.ColumnInt64(0)
					stats.Size = stmt.ColumnInt64(1)
					stats.CompressedSize = stmt.ColumnInt64(2)
					stats.Hits = stmt.ColumnInt64(3)
					return nil
				},
			})
	})
	return stats, err
}

func scanRow(stmt *sqlite.Stmt) indexRow {
	return indexRow{
		Key:            stmt.ColumnText(0),
		Size:           stmt.ColumnInt64(1),
		CompressedSize: stmt.ColumnInt64(2),
		Compression:    stmt.ColumnText(3),
		Triangles:      stmt.ColumnInt64(4),
		StoredAt:       stmt.ColumnInt64(5),
		LastAccess:     stmt.ColumnInt64(6),
		Hits:           stmt.ColumnInt64(7),
	}
}
