// Package message renders accepted news and price quotes as Telegram HTML.
package message

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/energynews/internal/prices"
)

const (
	// MaxDigestRunes keeps a digest under the 4096 limit of sendMessage.
	MaxDigestRunes = 4000
	// MaxCardRunes keeps a card under the 1024 limit of photo captions.
	MaxCardRunes = 1000

	separator = "━━━━━━━━━━━━━━━━━━━━"
)

// Item is one news entry as it is shown to readers.
type Item struct {
	Title     string
	URL       string
	Summary   string
	Country   string
	Source    string
	ImageURL  string
	Projects  []string
	Published time.Time
}

// DigestOptions controls the header, footer and summary length of a digest.
type DigestOptions struct {
	Title        string
	HomeCountry  string
	Date         time.Time
	Location     *time.Location
	Footer       string
	SummaryRunes int
}

func (o DigestOptions) withDefaults() DigestOptions {
	if o.Title == "" {
		o.Title = "Energy News Digest"
	}
	if o.Date.IsZero() {
		o.Date = time.Now()
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Footer == "" {
		o.Footer = "Energy News Bot"
	}
	if o.SummaryRunes <= 0 {
		o.SummaryRunes = 350
	}
	return o
}

var flags = map[string]string{
	"Thailand":      "🇹🇭",
	"Vietnam":       "🇻🇳",
	"Malaysia":      "🇲🇾",
	"Indonesia":     "🇮🇩",
	"Myanmar":       "🇲🇲",
	"Laos":          "🇱🇦",
	"Cambodia":      "🇰🇭",
	"Philippines":   "🇵🇭",
	"Singapore":     "🇸🇬",
	"China":         "🇨🇳",
	"Japan":         "🇯🇵",
	"International": "🌏",
}

func flag(country string) string {
	if f, ok := flags[country]; ok {
		return f
	}
	return "📍"
}

// BuildDigest renders a full digest: header, prices, items grouped by country, footer.
func BuildDigest(items []Item, quotes []prices.Quote, opts DigestOptions) string {
	opts = opts.withDefaults()
	var b strings.Builder

	b.WriteString(fmt.Sprintf("⚡ <b>%s</b> | %s\n", html.EscapeString(opts.Title), opts.Date.In(opts.Location).Format("02 Jan 2006")))
	b.WriteString(separator + "\n\n")

	if len(quotes) > 0 {
		b.WriteString("📊 <b>Prices</b>\n")
		for _, q := range quotes {
			b.WriteString(FormatQuote(q))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	number := 1
	for _, g := range groupByCountry(items, opts.HomeCountry) {
		b.WriteString(fmt.Sprintf("%s <b>%s</b>\n\n", flag(g.country), strings.ToUpper(html.EscapeString(g.country))))
		for _, it := range g.items {
			b.WriteString(formatItem(it, number, opts.SummaryRunes))
			number++
		}
	}
	if len(items) == 0 {
		b.WriteString("No new energy news.\n\n")
	}

	b.WriteString(separator + "\n")
	b.WriteString("📱 " + html.EscapeString(opts.Footer))
	return b.String()
}

// FitDigest drops items from the end until the digest fits maxRunes and
// returns the message with the number of items it holds.
func FitDigest(items []Item, quotes []prices.Quote, opts DigestOptions, maxRunes int) (string, int) {
	if maxRunes <= 0 {
		maxRunes = MaxDigestRunes
	}
	for n := len(items); n >= 0; n-- {
		msg := BuildDigest(items[:n], quotes, opts)
		if utf8.RuneCountInString(msg) <= maxRunes {
			return msg, n
		}
	}
	// Even the empty digest is too long; only the price block can cause this.
	return BuildDigest(nil, nil, opts), 0
}

func formatItem(it Item, number, summaryRunes int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%d.</b> <a href=\"%s\">%s</a>\n", number, html.EscapeString(it.URL), html.EscapeString(it.Title)))
	if s := CutAtSentence(it.Summary, summaryRunes); s != "" {
		b.WriteString(html.EscapeString(s))
		b.WriteString("\n")
	}
	if meta := itemMeta(it); meta != "" {
		b.WriteString("<i>" + html.EscapeString(meta) + "</i>\n")
	}
	b.WriteString("\n")
	return b.String()
}

func itemMeta(it Item) string {
	parts := make([]string, 0, 2)
	if it.Source != "" {
		parts = append(parts, it.Source)
	}
	if len(it.Projects) > 0 {
		parts = append(parts, strings.Join(it.Projects, ", "))
	}
	return strings.Join(parts, " · ")
}

// BuildCard renders a single item as a photo caption of at most MaxCardRunes.
func BuildCard(it Item) string {
	title := it.Title
	if utf8.RuneCountInString(title) > 200 {
		title = truncate(title, 200)
	}
	head := fmt.Sprintf("%s <b>%s</b>\n\n", flag(countryOrIntl(it.Country)), html.EscapeString(title))

	link := it.Source
	if link == "" {
		link = "Read more"
	}
	tail := fmt.Sprintf("\n\n🔗 <a href=\"%s\">%s</a>", html.EscapeString(it.URL), html.EscapeString(link))

	budget := MaxCardRunes - utf8.RuneCountInString(head) - utf8.RuneCountInString(tail)
	summary := ""
	// Escaping can only grow the text, so shrink until the escaped form fits.
	for limit := budget; limit > 0; limit -= 20 {
		summary = html.EscapeString(CutAtSentence(it.Summary, limit))
		if utf8.RuneCountInString(summary) <= budget {
			break
		}
		summary = ""
	}
	return head + summary + tail
}

// FormatQuote renders one price line, e.g. "🛢 Brent: 82.45 USD ▼ -1.25%".
func FormatQuote(q prices.Quote) string {
	name := q.Name
	if name == "" {
		name = prices.DisplayName(q.Code)
	}

	change := "▬ 0.00%"
	switch {
	case q.ChangePercent > 0:
		change = fmt.Sprintf("▲ +%.2f%%", q.ChangePercent)
	case q.ChangePercent < 0:
		change = fmt.Sprintf("▼ %.2f%%", q.ChangePercent)
	}
	return fmt.Sprintf("%s %s: %.2f %s %s", quoteIcon(q.Code), html.EscapeString(name), q.Price, html.EscapeString(q.Currency), change)
}

func quoteIcon(code string) string {
	switch {
	case strings.Contains(code, "CRUDE"), strings.Contains(code, "WTI"), strings.Contains(code, "OIL"):
		return "🛢"
	case strings.Contains(code, "GAS"), strings.Contains(code, "LNG"), strings.Contains(code, "TTF"):
		return "🔥"
	case strings.Contains(code, "COAL"):
		return "⛏"
	}
	return "💲"
}

var sentenceEnd = regexp.MustCompile(`[.!?។]\s`)

// CutAtSentence shortens text to maxRunes, cutting at the last full sentence
// when one ends in the kept part, otherwise on a rune boundary with "...".
func CutAtSentence(text string, maxRunes int) string {
	text = strings.Join(strings.Fields(text), " ")
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	head := string([]rune(text)[:maxRunes])
	// A sentence end right at the cut has no trailing space yet.
	window := head + string([]rune(text)[maxRunes:maxRunes+1])
	if locs := sentenceEnd.FindAllStringIndex(window, -1); len(locs) > 0 {
		end := locs[len(locs)-1][1] - 1
		if end > len(head)/3 {
			return head[:end]
		}
	}
	return truncate(text, maxRunes)
}

func truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(r[:maxRunes])
	}
	return strings.TrimSpace(string(r[:maxRunes-3])) + "..."
}

type countryGroup struct {
	country string
	items   []Item
}

func countryOrIntl(country string) string {
	if country == "" {
		return "International"
	}
	return country
}

// groupByCountry keeps item order inside a group. The home country comes
// first, International last, other countries alphabetically in between.
func groupByCountry(items []Item, home string) []countryGroup {
	index := map[string]int{}
	var groups []countryGroup
	for _, it := range items {
		c := countryOrIntl(it.Country)
		i, ok := index[c]
		if !ok {
			i = len(groups)
			index[c] = i
			groups = append(groups, countryGroup{country: c})
		}
		groups[i].items = append(groups[i].items, it)
	}

	rank := func(c string) int {
		switch c {
		case home:
			return 0
		case "International":
			return 2
		}
		return 1
	}
	sort.SliceStable(groups, func(i, j int) bool {
		ri, rj := rank(groups[i].country), rank(groups[j].country)
		if ri != rj {
			return ri < rj
		}
		return groups[i].country < groups[j].country
	})
	return groups
}
