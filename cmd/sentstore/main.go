// Command sentstore checks the configured sent store and prints what it holds.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"

	"github.com/deusflow/energynews/internal/app"
	"github.com/deusflow/energynews/internal/config"
)

func main() {
	limit := flag.Int("n", 5, "number of recent entries to show")
	cleanup := flag.Bool("cleanup", false, "remove expired entries")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Telegram settings are irrelevant here.
		cfg.DryRun = true
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "❌ invalid configuration: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := report(ctx, cfg, *limit, *cleanup); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func report(ctx context.Context, cfg *config.Config, limit int, cleanup bool) error {
	fmt.Printf("🔌 Opening %s sent store (%s)\n", cfg.SentStore, storeLocation(cfg))

	store, err := app.OpenSentStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	fmt.Println("✅ Connected")

	if cleanup {
		removed, err := store.Cleanup(ctx)
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		fmt.Printf("🧹 Removed %d expired entries\n", removed)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		fmt.Printf("⚠️ Failed to get stats: %v\n", err)
	} else {
		fmt.Println("\n📊 Statistics:")
		keys := make([]string, 0, len(stats))
		for k := range stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %d\n", k, stats[k])
		}
	}

	recent, err := store.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("recent entries: %w", err)
	}
	fmt.Printf("\n📰 Recent news (last %d):\n", limit)
	if len(recent) == 0 {
		fmt.Println("  (no news sent yet)")
	}
	for i, item := range recent {
		fmt.Printf("  %d. %s\n", i+1, item.Title)
		fmt.Printf("     %s | %s | sent %s\n", orDash(item.Country), orDash(item.Source), item.SentAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func storeLocation(cfg *config.Config) string {
	switch cfg.SentStore {
	case config.StorePostgres:
		return maskPassword(cfg.DatabaseURL)
	case config.StoreSQLite:
		return cfg.SQLitePath
	}
	return cfg.CacheFilePath
}

// maskPassword hides the password of a connection URL.
func maskPassword(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
