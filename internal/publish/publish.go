// Package publish writes accepted news back out as an RSS feed.
package publish

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/feeds"

	"github.com/deusflow/energynews/internal/news"
)

// BuildRSS renders items as RSS 2.0. Items keep their order.
func BuildRSS(title, link string, items []news.Candidate, now time.Time) (string, error) {
	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: "Filtered energy and power sector news",
		Created:     now,
		Updated:     now,
	}

	feed.Items = make([]*feeds.Item, 0, len(items))
	for _, c := range items {
		id := c.Fingerprint
		if id == "" {
			id = c.CanonicalURL
		}
		created := c.Published
		if created.IsZero() {
			created = now
		}
		item := &feeds.Item{
			Title:       c.Title,
			Link:        &feeds.Link{Href: c.URL},
			Description: c.Summary,
			Id:          id,
			Created:     created,
		}
		if c.SourceFeed != "" {
			item.Author = &feeds.Author{Name: c.SourceFeed}
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return "", fmt.Errorf("failed to render RSS: %w", err)
	}
	return rss, nil
}

// WriteRSS renders items and replaces the file at path atomically.
func WriteRSS(path, title, link string, items []news.Candidate, now time.Time) error {
	rss, err := BuildRSS(title, link, items, now)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create feed dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(rss), 0o644); err != nil {
		return fmt.Errorf("failed to write feed: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace feed: %w", err)
	}
	return nil
}
