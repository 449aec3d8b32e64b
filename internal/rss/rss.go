package rss

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/energynews/internal/logger"
	"github.com/deusflow/energynews/internal/news"
	"github.com/deusflow/energynews/internal/retry"
	"github.com/deusflow/energynews/internal/scraper"
)

// Feed is one source. Type drives the country fallback ("domestic", "thai",
// "international", ...).
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Type string `yaml:"type"`
}

// UnmarshalYAML also accepts a bare URL string.
func (f *Feed) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.URL = strings.TrimSpace(node.Value)
		f.Name = hostName(f.URL)
		f.Type = "international"
		return nil
	}
	type plain Feed
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*f = Feed(p)
	if f.Name == "" {
		f.Name = hostName(f.URL)
	}
	if f.Type == "" {
		f.Type = "international"
	}
	return nil
}

// FeedsConfig is YAML config structure
//
//	feeds:
//	  - name: Energy News Thailand
//	    url: https://...
//	    type: domestic
type FeedsConfig struct {
	Feeds []Feed `yaml:"feeds"`
}

// LoadFeeds reads the feed list from a YAML file.
func LoadFeeds(path string) ([]Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feeds config: %w", err)
	}
	defer f.Close()

	var cfg FeedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode feeds config %s: %w", path, err)
	}

	feeds := cfg.Feeds[:0]
	for _, feed := range cfg.Feeds {
		if feed.URL == "" {
			continue
		}
		feeds = append(feeds, feed)
	}
	if len(feeds) == 0 {
		return nil, fmt.Errorf("no feeds in %s", path)
	}
	return feeds, nil
}

// Fetcher downloads feeds over HTTP.
type Fetcher struct {
	HTTP      *http.Client
	Retry     retry.RetryConfig
	UserAgent string
}

func NewFetcher(timeout time.Duration, rc retry.RetryConfig) *Fetcher {
	return &Fetcher{
		HTTP:      &http.Client{Timeout: timeout},
		Retry:     rc,
		UserAgent: "energynews-bot/1.0",
	}
}

// FetchAll downloads and parses every feed. A failing feed is logged and
// skipped.
func (f *Fetcher) FetchAll(ctx context.Context, feeds []Feed) []news.RawItem {
	var all []news.RawItem
	successCount := 0

	for _, feed := range feeds {
		if ctx.Err() != nil {
			break
		}
		items, err := f.Fetch(ctx, feed)
		if err != nil {
			logger.Warn("error fetching RSS", "feed", feed.Name, "url", feed.URL, "error", err)
			continue
		}
		all = append(all, items...)
		successCount++
		logger.Debug("loaded feed", "feed", feed.Name, "items", len(items))
	}

	logger.Info("processed RSS feeds", "ok", successCount, "total", len(feeds), "items", len(all))
	return all
}

// Fetch downloads a single feed, retrying transient failures.
func (f *Fetcher) Fetch(ctx context.Context, feed Feed) ([]news.RawItem, error) {
	body, err := retry.Do(ctx, f.Retry, func() ([]byte, error) {
		return f.get(ctx, feed.URL)
	})
	if err != nil {
		return nil, err
	}
	return ParseFeed(feed, body)
}

func (f *Fetcher) get(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, retry.Permanent(fmt.Errorf("HTTP error: %d", resp.StatusCode))
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

// ParseFeed converts a feed document into raw items. The publish time falls
// back to the update time; the summary to the content.
func ParseFeed(feed Feed, body []byte) ([]news.RawItem, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feed.Name, err)
	}

	items := make([]news.RawItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		summary := it.Description
		if strings.TrimSpace(summary) == "" {
			summary = it.Content
		}
		published := it.PublishedParsed
		if published == nil {
			published = it.UpdatedParsed
		}
		items = append(items, news.RawItem{
			Title:     scraper.HTMLToText(it.Title),
			Link:      strings.TrimSpace(it.Link),
			Summary:   scraper.HTMLToText(summary),
			Published: published,
			FeedName:  feed.Name,
			FeedType:  feed.Type,
		})
	}
	return items, nil
}

func hostName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.TrimPrefix(u.Host, "www.")
}
