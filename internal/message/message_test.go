package message

import (
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/energynews/internal/prices"
)

var day = time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC)

func TestBuildDigest_GroupsAndOrder(t *testing.T) {
	items := []Item{
		{Title: "Solar tender opens", URL: "https://a.example/1", Country: "Vietnam", Source: "VnExpress"},
		{Title: "LNG cargo arrives", URL: "https://a.example/2", Country: ""},
		{Title: "EGAT grid upgrade", URL: "https://a.example/3", Country: "Thailand"},
		{Title: "Coal plant retired", URL: "https://a.example/4", Country: "Indonesia"},
	}
	msg := BuildDigest(items, nil, DigestOptions{HomeCountry: "Thailand", Date: day})

	assert.Contains(t, msg, "10 Mar 2025")
	th := strings.Index(msg, "THAILAND")
	id := strings.Index(msg, "INDONESIA")
	vn := strings.Index(msg, "VIETNAM")
	intl := strings.Index(msg, "INTERNATIONAL")
	require.True(t, th > 0 && id > 0 && vn > 0 && intl > 0)
	assert.True(t, th < id && id < vn && vn < intl)

	assert.Contains(t, msg, `<b>1.</b> <a href="https://a.example/3">EGAT grid upgrade</a>`)
	assert.Contains(t, msg, `<b>4.</b> <a href="https://a.example/2">LNG cargo arrives</a>`)
	assert.Contains(t, msg, "<i>VnExpress</i>")
	assert.NotContains(t, msg, "Prices")
}

func TestBuildDigest_EscapesAndPrices(t *testing.T) {
	items := []Item{{Title: "PTT & Shell <deal>", URL: "https://a.example/?a=1&b=2", Summary: "Price < cost."}}
	quotes := []prices.Quote{{Code: "BRENT_CRUDE_USD", Name: "Brent", Price: 82.45, Currency: "USD", ChangePercent: 1.5}}

	msg := BuildDigest(items, quotes, DigestOptions{Date: day})
	assert.Contains(t, msg, "PTT &amp; Shell &lt;deal&gt;")
	assert.Contains(t, msg, `href="https://a.example/?a=1&amp;b=2"`)
	assert.Contains(t, msg, "Price &lt; cost.")
	assert.Contains(t, msg, "🛢 Brent: 82.45 USD ▲ +1.50%")
}

func TestBuildDigest_Empty(t *testing.T) {
	msg := BuildDigest(nil, nil, DigestOptions{Date: day, Footer: "Daily at 08:00"})
	assert.Contains(t, msg, "No new energy news.")
	assert.True(t, strings.HasSuffix(msg, "📱 Daily at 08:00"))
}

func TestFitDigest(t *testing.T) {
	var items []Item
	for i := 0; i < 20; i++ {
		items = append(items, Item{
			Title:   "Grid operator expands transmission capacity",
			URL:     "https://a.example/item",
			Summary: strings.Repeat("Transmission upgrades continue across the region. ", 6),
			Country: "Thailand",
		})
	}
	msg, n := FitDigest(items, nil, DigestOptions{Date: day}, 0)
	assert.LessOrEqual(t, utf8.RuneCountInString(msg), MaxDigestRunes)
	assert.Greater(t, n, 0)
	assert.Less(t, n, 20)
	assert.Contains(t, msg, "<b>"+strconv.Itoa(n)+".</b>")
	assert.NotContains(t, msg, "<b>"+strconv.Itoa(n+1)+".</b>")

	_, all := FitDigest(items[:2], nil, DigestOptions{Date: day}, 0)
	assert.Equal(t, 2, all)
}

func TestBuildCard(t *testing.T) {
	card := BuildCard(Item{
		Title:   "EGAT signs solar PPA",
		URL:     "https://a.example/1",
		Summary: strings.Repeat("The utility signed a long term contract. ", 60),
		Country: "Thailand",
		Source:  "Bangkok Post",
	})
	assert.LessOrEqual(t, utf8.RuneCountInString(card), MaxCardRunes)
	assert.True(t, strings.HasPrefix(card, "🇹🇭 <b>EGAT signs solar PPA</b>"))
	assert.True(t, strings.HasSuffix(card, `🔗 <a href="https://a.example/1">Bangkok Post</a>`))
	assert.Contains(t, card, "contract.\n\n🔗")
}

func TestFormatQuote(t *testing.T) {
	assert.Equal(t, "🔥 Henry Hub Gas: 3.10 USD ▼ -2.00%", FormatQuote(prices.Quote{Code: "NATURAL_GAS_USD", Price: 3.1, Currency: "USD", ChangePercent: -2}))
	assert.Equal(t, "⛏ Coal: 130.00 USD ▬ 0.00%", FormatQuote(prices.Quote{Code: "COAL_USD", Name: "Coal", Price: 130, Currency: "USD"}))
}

func TestCutAtSentence(t *testing.T) {
	text := "First sentence here. Second sentence is longer than the limit allows."
	assert.Equal(t, "First sentence here.", CutAtSentence(text, 40))
	assert.Equal(t, text, CutAtSentence(text, 200))
	assert.Equal(t, "short", CutAtSentence("  short  ", 10))

	// no sentence end in the kept part
	assert.Equal(t, "abcdefg...", CutAtSentence("abcdefghijklmnop", 10))

	// sentence end exactly at the cut
	assert.Equal(t, "One two. Three four.", CutAtSentence("One two. Three four. Five", 20))
}
