package news

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// CountryInternational tags items about international bodies or major powers
// rather than one country of the coverage area.
const CountryInternational = "International"

// RawItem is one feed entry as handed over by the feed parser.
type RawItem struct {
	Title     string
	Link      string
	Summary   string
	Published *time.Time
	FeedName  string
	FeedType  string
}

// Candidate is a news item moving through a single filter run.
type Candidate struct {
	Title        string
	URL          string
	CanonicalURL string
	Summary      string
	Published    time.Time // zero when the feed gave no usable date
	SourceFeed   string
	FeedType     string
	Country      string

	ProjectHints []string
	Fingerprint  string
}

// NewCandidate trims the raw fields, derives the canonical URL and truncates
// the summary to maxSummary runes (0 keeps it whole).
func NewCandidate(raw RawItem, maxSummary int) Candidate {
	c := Candidate{
		Title:      strings.Join(strings.Fields(raw.Title), " "),
		URL:        strings.TrimSpace(raw.Link),
		Summary:    truncateRunes(strings.Join(strings.Fields(raw.Summary), " "), maxSummary),
		SourceFeed: raw.FeedName,
		FeedType:   raw.FeedType,
	}
	c.CanonicalURL = CanonicalURL(c.URL)
	if raw.Published != nil {
		c.Published = *raw.Published
	}
	return c
}

// Valid reports whether the candidate has both a title and a URL.
func (c *Candidate) Valid() bool {
	return c.Title != "" && c.URL != ""
}

// HasPublished reports whether the publish time is known.
func (c *Candidate) HasPublished() bool {
	return !c.Published.IsZero()
}

// Text is the title and summary joined, as used by the keyword checks.
func (c *Candidate) Text() string {
	if c.Summary == "" {
		return c.Title
	}
	return c.Title + " " + c.Summary
}

// SortOldestFirst orders items by publish time, oldest first; items without a
// time go last. The sort is stable so feed order breaks ties.
func SortOldestFirst(items []RawItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Published, items[j].Published
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return strings.TrimSpace(string([]rune(s)[:max-3])) + "..."
}

// withinWindow is false when either time is unknown.
func withinWindow(a, b time.Time, window time.Duration) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}
