package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/deusflow/energynews/internal/logger"
)

// SQLCache keeps sent items in PostgreSQL or SQLite. Timestamps are stored as
// unix seconds so both engines share one schema.
type SQLCache struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	ttl time.Duration
	now func() time.Time
}

var _ SentStore = (*SQLCache)(nil)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sent_news (
		url TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		country TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		fingerprint TEXT NOT NULL DEFAULT '',
		run_id TEXT NOT NULL DEFAULT '',
		sent_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sent_news_sent_at ON sent_news(sent_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sent_news_fingerprint ON sent_news(fingerprint)`,
}

// OpenPostgres connects with lib/pq and creates the schema.
func OpenPostgres(ctx context.Context, connectionString string, ttlHours int) (*SQLCache, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return newSQLCache(ctx, db, sq.Dollar, ttlHours)
}

// OpenSQLite opens (or creates) a SQLite file in WAL mode.
func OpenSQLite(ctx context.Context, path string, ttlHours int) (*SQLCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	return newSQLCache(ctx, db, sq.Question, ttlHours)
}

func newSQLCache(ctx context.Context, db *sql.DB, ph sq.PlaceholderFormat, ttlHours int) (*SQLCache, error) {
	c := &SQLCache{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(ph),
		ttl: time.Duration(ttlHours) * time.Hour,
		now: time.Now,
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	logger.Debug("sent store schema ready")
	return c, nil
}

func (c *SQLCache) cutoff() int64 {
	return c.now().Add(-c.ttl).Unix()
}

// IsSent reports whether url was sent within the TTL window.
func (c *SQLCache) IsSent(ctx context.Context, url string) (bool, error) {
	query, args, err := c.sb.Select("COUNT(*)").From("sent_news").
		Where(sq.Eq{"url": url}).
		Where(sq.Gt{"sent_at": c.cutoff()}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var count int
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("check sent: %w", err)
	}
	return count > 0, nil
}

// MarkAsSent upserts the record; a repeat refreshes sent_at.
func (c *SQLCache) MarkAsSent(ctx context.Context, rec SentRecord) error {
	if rec.URL == "" {
		return fmt.Errorf("mark as sent: empty url")
	}
	sentAt := rec.SentAt
	if sentAt.IsZero() {
		sentAt = c.now()
	}

	query, args, err := c.sb.Insert("sent_news").
		Columns("url", "title", "country", "source", "fingerprint", "run_id", "sent_at").
		Values(rec.URL, rec.Title, rec.Country, rec.Source, rec.Fingerprint, rec.RunID, sentAt.Unix()).
		Suffix("ON CONFLICT (url) DO UPDATE SET title = excluded.title, run_id = excluded.run_id, sent_at = excluded.sent_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark as sent: %w", err)
	}
	return nil
}

func (c *SQLCache) Cleanup(ctx context.Context) (int64, error) {
	query, args, err := c.sb.Delete("sent_news").Where(sq.LtOrEq{"sent_at": c.cutoff()}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows > 0 {
		logger.Info("cleaned up old sent records", "rows", rows)
	}
	return rows, nil
}

func (c *SQLCache) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)

	var total int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sent_news`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count total: %w", err)
	}
	stats["total_items"] = total

	query, args, err := c.sb.Select("country", "COUNT(*)").From("sent_news").
		Where(sq.Gt{"sent_at": c.cutoff()}).
		GroupBy("country").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stats: %w", err)
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count by country: %w", err)
	}
	defer rows.Close()

	active := 0
	for rows.Next() {
		var country string
		var n int
		if err := rows.Scan(&country, &n); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		active += n
		if country != "" {
			stats["country_"+country] = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	stats["active_items"] = active
	return stats, nil
}

// Recent returns the latest records, newest first.
func (c *SQLCache) Recent(ctx context.Context, limit int) ([]SentRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query, args, err := c.sb.Select("url", "title", "country", "source", "fingerprint", "run_id", "sent_at").
		From("sent_news").
		OrderBy("sent_at DESC", "url").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent: %w", err)
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var items []SentRecord
	for rows.Next() {
		var rec SentRecord
		var sentAt int64
		if err := rows.Scan(&rec.URL, &rec.Title, &rec.Country, &rec.Source, &rec.Fingerprint, &rec.RunID, &sentAt); err != nil {
			return nil, fmt.Errorf("scan recent: %w", err)
		}
		rec.SentAt = time.Unix(sentAt, 0).UTC()
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (c *SQLCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
