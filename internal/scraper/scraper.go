package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/energynews/internal/logger"
)

// Preview is what a digest card needs from the article page.
type Preview struct {
	URL         string
	Title       string
	ImageURL    string
	Description string
	Text        string // first substantial paragraphs
}

// Client fetches article pages.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	// Pause between pages in ExtractPreviews.
	Pause time.Duration
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		UserAgent: "Mozilla/5.0 (compatible; energynews-bot/1.0)",
		Pause:     500 * time.Millisecond,
	}
}

// HTMLToText returns the visible text of an HTML fragment with whitespace
// collapsed. Plain text passes through unchanged apart from whitespace.
func HTMLToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("br, p, div, li").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ExtractPreview loads the page at link and reads its Open Graph data and
// leading paragraphs.
func (c *Client) ExtractPreview(ctx context.Context, link string) (*Preview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	p := &Preview{
		URL:         link,
		Title:       firstNonEmpty(metaContent(doc, "og:title"), extractTitle(doc)),
		ImageURL:    resolve(link, firstNonEmpty(metaContent(doc, "og:image"), metaContent(doc, "twitter:image"))),
		Description: firstNonEmpty(metaContent(doc, "og:description"), metaContent(doc, "description")),
		Text:        extractGenericContent(doc),
	}
	if p.ImageURL == "" && p.Description == "" && p.Text == "" {
		return nil, fmt.Errorf("can't get content")
	}
	return p, nil
}

// ExtractPreviews fetches up to max pages one after another, skipping failures.
func (c *Client) ExtractPreviews(ctx context.Context, links []string, max int) map[string]*Preview {
	result := make(map[string]*Preview)

	for i, link := range links {
		if max > 0 && i >= max {
			break
		}
		if ctx.Err() != nil {
			break
		}

		logger.Debug("fetching article preview", "n", i+1, "total", len(links), "url", link)
		p, err := c.ExtractPreview(ctx, link)
		if err != nil {
			logger.Warn("can't get article preview", "url", link, "error", err)
			continue
		}
		result[link] = p

		if c.Pause > 0 && i < len(links)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(c.Pause):
			}
		}
	}
	return result
}

func metaContent(doc *goquery.Document, name string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property="%s"]`, name)).First()
	if sel.Length() == 0 {
		sel = doc.Find(fmt.Sprintf(`meta[name="%s"]`, name)).First()
	}
	v, _ := sel.Attr("content")
	return strings.TrimSpace(v)
}

// extractGenericContent collects the first paragraphs from the usual article
// containers.
func extractGenericContent(doc *goquery.Document) string {
	var paragraphs []string

	selectors := []string{
		"article p",
		".article-body p",
		".content p",
		".post-content p",
		".entry-content p",
		"main p",
		"p",
	}

	for _, selector := range selectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := collapse(s.Text())
			if len([]rune(text)) > 40 && !isJunk(text) {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			break
		}
	}
	if len(paragraphs) > 3 {
		paragraphs = paragraphs[:3]
	}
	return strings.Join(paragraphs, "\n\n")
}

func extractTitle(doc *goquery.Document) string {
	for _, selector := range []string{"h1", "title", ".article-title", ".headline", ".entry-title"} {
		if title := collapse(doc.Find(selector).First().Text()); title != "" {
			return title
		}
	}
	return ""
}

var junkIndicators = []string{
	"cookie", "subscribe", "newsletter", "advertisement", "all rights reserved",
	"คุกกี้", "สมัครสมาชิก", "โฆษณา",
}

func isJunk(text string) bool {
	lower := strings.ToLower(text)
	for _, j := range junkIndicators {
		if strings.Contains(lower, j) {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolve makes ref absolute against the page URL.
func resolve(page, ref string) string {
	if ref == "" {
		return ""
	}
	base, err := url.Parse(page)
	if err != nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}
