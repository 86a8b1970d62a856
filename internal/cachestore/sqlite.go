package cachestore

import (
    "context"
    "database/sql"
    "fmt"
    "strings"
    "time"

    _ "modernc.org/sqlite"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS price_cache (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	market TEXT NOT NULL,
	market_hash_name TEXT NOT NULL,
	currency TEXT NOT NULL,
	gross_price REAL NOT NULL,
	net_price REAL NOT NULL,
	url TEXT,
	fetched_at TIMESTAMP NOT NULL,
	raw TEXT,
	UNIQUE(market, market_hash_name)
);
CREATE INDEX IF NOT EXISTS idx_price_cache_name ON price_cache(market_hash_name);
`

// SQLite is the persisted Store backed by a local sqlite database.
type SQLite struct {
    db *sql.DB
}

// OpenSQLite opens (creating if needed) the price cache database at path.
func OpenSQLite(path string) (*SQLite, error) {
    db, err := sql.Open("sqlite", path)
    if err != nil {
        return nil, fmt.Errorf("open database %s: %w", path, err)
    }
    if _, err := db.Exec(createTableStatement); err != nil {
        db.Close()
        return nil, fmt.Errorf("migrate price_cache: %w", err)
    }
    return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) GetLatestByMarketHashNames(ctx context.Context, names []string, markets []string) (map[string]map[string]Row, error) {
    out := make(map[string]map[string]Row, len(markets))
    if len(names) == 0 || len(markets) == 0 {
        return out, nil
    }

    query := fmt.Sprintf(`
		SELECT market, market_hash_name, currency, gross_price, net_price, url, fetched_at, raw
		FROM price_cache
		WHERE market IN (%s) AND market_hash_name IN (%s)
		ORDER BY fetched_at ASC, id ASC`,
        placeholders(len(markets)), placeholders(len(names)))

    args := make([]any, 0, len(markets)+len(names))
    for _, m := range markets {
        args = append(args, m)
    }
    for _, n := range names {
        args = append(args, n)
    }

    rows, err := s.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, fmt.Errorf("query price_cache: %w", err)
    }
    defer rows.Close()

    for rows.Next() {
        var r Row
        var url, raw sql.NullString
        var fetchedAt string
        if err := rows.Scan(&r.Market, &r.MarketHashName, &r.Currency, &r.GrossPrice, &r.NetPrice, &url, &fetchedAt, &raw); err != nil {
            return nil, fmt.Errorf("scan price_cache row: %w", err)
        }
        r.URL = url.String
        if raw.Valid {
            r.Raw = []byte(raw.String)
        }
        if t, err := time.Parse(time.RFC3339Nano, fetchedAt); err == nil {
            r.FetchedAt = t
        }
        byName, ok := out[r.Market]
        if !ok {
            byName = make(map[string]Row)
            out[r.Market] = byName
        }
        // Ascending fetch order: the newest row for a pair wins.
        byName[r.MarketHashName] = r
    }
    return out, rows.Err()
}

func (s *SQLite) UpsertRows(ctx context.Context, rows []Row) (int, error) {
    if len(rows) == 0 {
        return 0, nil
    }
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, fmt.Errorf("begin upsert: %w", err)
    }
    defer tx.Rollback()

    stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_cache (market, market_hash_name, currency, gross_price, net_price, url, fetched_at, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(market, market_hash_name) DO UPDATE SET
			currency = excluded.currency,
			gross_price = excluded.gross_price,
			net_price = excluded.net_price,
			url = excluded.url,
			fetched_at = excluded.fetched_at,
			raw = excluded.raw`)
    if err != nil {
        return 0, fmt.Errorf("prepare upsert: %w", err)
    }
    defer stmt.Close()

    count := 0
    for _, r := range rows {
        var raw any
        if len(r.Raw) > 0 {
            raw = string(r.Raw)
        }
        if _, err := stmt.ExecContext(ctx,
            r.Market, r.MarketHashName, r.Currency, r.GrossPrice, r.NetPrice,
            r.URL, r.FetchedAt.UTC().Format(time.RFC3339Nano), raw,
        ); err != nil {
            return count, fmt.Errorf("upsert %s/%s: %w", r.Market, r.MarketHashName, err)
        }
        count++
    }
    if err := tx.Commit(); err != nil {
        return 0, fmt.Errorf("commit upsert: %w", err)
    }
    return count, nil
}

func placeholders(n int) string {
    return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
