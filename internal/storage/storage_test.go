package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type storeCase struct {
	name string
	open func(t *testing.T) (SentStore, func(time.Time))
}

func stores(t *testing.T) []storeCase {
	cases := []storeCase{
		{"file", func(t *testing.T) (SentStore, func(time.Time)) {
			fc := NewFileCache(filepath.Join(t.TempDir(), "sent.json"), 48)
			fc.now = func() time.Time { return now }
			return fc, func(ts time.Time) { fc.now = func() time.Time { return ts } }
		}},
		{"sqlite", func(t *testing.T) (SentStore, func(time.Time)) {
			sc, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "sent.db"), 48)
			require.NoError(t, err)
			sc.now = func() time.Time { return now }
			return sc, func(ts time.Time) { sc.now = func() time.Time { return ts } }
		}},
	}
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		cases = append(cases, storeCase{"postgres", func(t *testing.T) (SentStore, func(time.Time)) {
			sc, err := OpenPostgres(context.Background(), dsn, 48)
			require.NoError(t, err)
			_, err = sc.db.Exec(`DELETE FROM sent_news`)
			require.NoError(t, err)
			sc.now = func() time.Time { return now }
			return sc, func(ts time.Time) { sc.now = func() time.Time { return ts } }
		}})
	}
	return cases
}

func TestSentStore_MarkAndCheck(t *testing.T) {
	for _, tc := range stores(t) {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s, _ := tc.open(t)
			defer s.Close()

			sent, err := s.IsSent(ctx, "https://a.example/1")
			require.NoError(t, err)
			assert.False(t, sent)

			require.NoError(t, s.MarkAsSent(ctx, SentRecord{URL: "https://a.example/1", Title: "one", Country: "Thailand", RunID: "run1"}))
			require.NoError(t, s.MarkAsSent(ctx, SentRecord{URL: "https://a.example/1", Title: "one again", Country: "Thailand", RunID: "run2"}))
			require.NoError(t, s.MarkAsSent(ctx, SentRecord{URL: "https://a.example/2", Title: "two", Country: "Vietnam", SentAt: now.Add(-time.Hour)}))

			sent, err = s.IsSent(ctx, "https://a.example/1")
			require.NoError(t, err)
			assert.True(t, sent)

			stats, err := s.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, stats["total_items"])
			assert.Equal(t, 2, stats["active_items"])
			assert.Equal(t, 1, stats["country_Thailand"])

			recent, err := s.Recent(ctx, 5)
			require.NoError(t, err)
			require.Len(t, recent, 2)
			assert.Equal(t, "https://a.example/1", recent[0].URL)
			assert.Equal(t, "one again", recent[0].Title)
			assert.Equal(t, "run2", recent[0].RunID)
		})
	}
}

func TestSentStore_TTL(t *testing.T) {
	for _, tc := range stores(t) {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s, setNow := tc.open(t)
			defer s.Close()

			require.NoError(t, s.MarkAsSent(ctx, SentRecord{URL: "https://a.example/old", Title: "old", SentAt: now.Add(-72 * time.Hour)}))
			require.NoError(t, s.MarkAsSent(ctx, SentRecord{URL: "https://a.example/new", Title: "new"}))

			sent, err := s.IsSent(ctx, "https://a.example/old")
			require.NoError(t, err)
			assert.False(t, sent)

			removed, err := s.Cleanup(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), removed)

			setNow(now.Add(49 * time.Hour))
			sent, err = s.IsSent(ctx, "https://a.example/new")
			require.NoError(t, err)
			assert.False(t, sent)
		})
	}
}

func TestFileCache_SaveAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "sent.json")

	fc := NewFileCache(path, 48)
	require.NoError(t, fc.MarkAsSent(ctx, SentRecord{URL: "https://a.example/1", Title: "fresh"}))
	require.NoError(t, fc.MarkAsSent(ctx, SentRecord{URL: "https://a.example/2", Title: "stale", SentAt: time.Now().Add(-100 * time.Hour)}))
	require.NoError(t, fc.Close())

	reloaded, err := OpenFileCache(path, 48)
	require.NoError(t, err)
	sent, _ := reloaded.IsSent(ctx, "https://a.example/1")
	assert.True(t, sent)
	stats, _ := reloaded.Stats(ctx)
	assert.Equal(t, 1, stats["total_items"])
}

func TestFileCache_MissingAndCorruptFile(t *testing.T) {
	dir := t.TempDir()
	_, err := OpenFileCache(filepath.Join(dir, "absent.json"), 48)
	require.NoError(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = OpenFileCache(bad, 48)
	assert.Error(t, err)
}

func TestMarkAsSent_EmptyURL(t *testing.T) {
	fc := NewFileCache(filepath.Join(t.TempDir(), "sent.json"), 48)
	assert.Error(t, fc.MarkAsSent(context.Background(), SentRecord{Title: "x"}))
}
