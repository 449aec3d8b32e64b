package news

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func cand(title, link, country string, ts time.Time) *Candidate {
	c := NewCandidate(RawItem{Title: title, Link: link}, 0)
	c.Country = country
	c.Published = ts
	return &c
}

func TestAdd_SameItemTwice(t *testing.T) {
	d := NewDeduplicator(DefaultClassifier())
	c := cand("Solar output climbs", "https://example.com/a", "", base)

	ok, reason := d.Add(c)
	require.True(t, ok)
	assert.Empty(t, reason)

	again := cand("Solar output climbs", "https://example.com/a", "", base)
	ok, reason = d.Add(again)
	assert.False(t, ok)
	assert.Equal(t, DupURL, reason)
	assert.Equal(t, 1, d.Len())
}

func TestAdd_URLVariants(t *testing.T) {
	d := NewDeduplicator(DefaultClassifier())
	ok, _ := d.Add(cand("Grid upgrade completed", "https://example.com/a?utm_source=rss", "", base))
	require.True(t, ok)

	ok, reason := d.Add(cand("Hydrogen breakthrough announced", "http://www.example.com/a/", "", base))
	assert.False(t, ok)
	assert.Equal(t, DupURL, reason)
}

func TestAdd_QueryIdentifiedURLsAreDistinct(t *testing.T) {
	d := NewDeduplicator(DefaultClassifier())
	ok, _ := d.Add(cand("Grid upgrade completed in north", "https://news.example/view.php?id=101", "", base))
	require.True(t, ok)

	ok, reason := d.Add(cand("Hydrogen breakthrough announced", "https://news.example/view.php?id=202", "", base))
	assert.True(t, ok)
	assert.Empty(t, reason)

	ok, reason = d.Add(cand("Biomass plant restarts", "https://news.example/view.php?id=202&utm_source=rss", "", base))
	assert.False(t, ok)
	assert.Equal(t, DupURL, reason)
}

func TestAdd_RejectedItemURLIsRemembered(t *testing.T) {
	d := NewDeduplicator(DefaultClassifier())
	ok, _ := d.Add(cand("Grid upgrade completed in northern region", "https://a.example/1", "", base))
	require.True(t, ok)

	ok, reason := d.Add(cand("GRID UPGRADE COMPLETED IN NORTHERN REGION ", "https://b.example/2", "", base))
	require.False(t, ok)
	assert.Equal(t, DupSameTitle, reason)

	ok, reason = d.Add(cand("Hydrogen breakthrough announced", "https://b.example/2", "", base))
	assert.False(t, ok)
	assert.Equal(t, DupURL, reason)
}

func TestAdd_SameEventWithinWindow(t *testing.T) {
	d := NewDeduplicator(DefaultClassifier())
	ok, _ := d.Add(cand("Vietnam's 14th Party Congress sets energy targets", "https://vn.example/1", "Vietnam", base))
	require.True(t, ok)

	ok, reason := d.Add(cand("Vietnam opens 14th Congress with energy focus", "https://vn.example/2", "Vietnam", base.Add(3*time.Hour)))
	assert.False(t, ok)
	assert.Equal(t, DupSameEvent, reason)
}

func TestAdd_SameEventAcrossLanguages(t *testing.T) {
	d := NewDeduplicator(DefaultClassifier())
	ok, _ := d.Add(cand("Vietnam's 14th National Congress opens", "https://vn.example/en", "Vietnam", base))
	require.True(t, ok)

	ok, reason := d.Add(cand("เปิดประชุมสมัชชาพรรคครั้งที่ 14 ของเวียดนาม", "https://th.example/vn", "Vietnam", base.Add(3*time.Hour)))
	assert.False(t, ok)
	assert.Equal(t, DupSameEvent, reason)
}

func TestAdd_SameEventOutsideWindow(t *testing.T) {
	d := NewDeduplicator(DefaultClassifier())
	ok, _ := d.Add(cand("Vietnam's 14th Party Congress sets energy targets", "https://vn.example/1", "Vietnam", base))
	require.True(t, ok)

	_, reason := d.Add(cand("Vietnam opens 14th Congress with energy focus", "https://vn.example/2", "Vietnam", base.Add(30*time.Hour)))
	assert.NotEqual(t, DupSameEvent, reason)
}

func TestAdd_SameEventNeedsTimestamps(t *testing.T) {
	d := NewDeduplicator(DefaultClassifier())
	ok, _ := d.Add(cand("Vietnam's 14th Party Congress sets energy targets", "https://vn.example/1", "Vietnam", time.Time{}))
	require.True(t, ok)

	_, reason := d.Add(cand("Vietnam opens 14th Congress with energy focus", "https://vn.example/2", "Vietnam", base))
	assert.NotEqual(t, DupSameEvent, reason)
}

func TestAdd_EventRegisteredByRejectedItem(t *testing.T) {
	d := NewDeduplicator(DefaultClassifier())
	a := cand("Grid upgrade completed", "https://a.example/1", "", base)
	a.Fingerprint = "shared"
	ok, _ := d.Add(a)
	require.True(t, ok)

	b := cand("Refinery fire contained quickly", "https://a.example/2", "", base)
	b.Fingerprint = "shared"
	ok, reason := d.Add(b)
	require.False(t, ok)
	assert.Equal(t, DupFingerprint, reason)

	// The signature is known but its bucket stays empty.
	require.Len(t, d.events, 1)
	for _, bucket := range d.events {
		assert.Empty(t, bucket)
	}

	c := cand("Refinery fire contained quickly", "https://a.example/3", "", base)
	ok, reason = d.Add(c)
	assert.True(t, ok, "reason %s", reason)
}

func TestAdd_SimilarTitle(t *testing.T) {
	d := NewDeduplicator(DefaultClassifier())
	ok, _ := d.Add(cand("Bangchak expands biodiesel blending capacity nationwide", "https://a.example/1", "Thailand", base))
	require.True(t, ok)

	ok, reason := d.Add(cand("Bangchak expands biodiesel blending capacity nationwide today", "https://a.example/2", "Vietnam", base))
	assert.False(t, ok)
	assert.Equal(t, DupSimilarTitle, reason)
}

func TestAdd_SimilarTitleSameCountry(t *testing.T) {
	first := "Bangchak expands biodiesel blending capacity"
	second := "Bangchak expands biodiesel blending capacity nationwide today"

	t.Run("same country", func(t *testing.T) {
		d := NewDeduplicator(DefaultClassifier())
		ok, _ := d.Add(cand(first, "https://a.example/1", "Thailand", base))
		require.True(t, ok)
		ok, reason := d.Add(cand(second, "https://a.example/2", "Thailand", base))
		assert.False(t, ok)
		assert.Equal(t, DupSimilarTitleSameCountry, reason)
	})

	t.Run("other country", func(t *testing.T) {
		d := NewDeduplicator(DefaultClassifier())
		ok, _ := d.Add(cand(first, "https://a.example/1", "Thailand", base))
		require.True(t, ok)
		ok, reason := d.Add(cand(second, "https://a.example/2", "Vietnam", base))
		assert.True(t, ok, "reason %s", reason)
	})
}

func TestAdd_KeywordCluster(t *testing.T) {
	first := "PTTEP wins offshore gas field tender"
	second := "PTTEP wins offshore gas field tender near coast"

	d := NewDeduplicator(DefaultClassifier())
	ok, _ := d.Add(cand(first, "https://a.example/1", "Thailand", base))
	require.True(t, ok)
	ok, reason := d.Add(cand(second, "https://a.example/2", "Vietnam", base.Add(2*time.Hour)))
	assert.False(t, ok)
	assert.Equal(t, DupKeywordCluster, reason)

	d = NewDeduplicator(DefaultClassifier())
	ok, _ = d.Add(cand(first, "https://a.example/1", "Thailand", base))
	require.True(t, ok)
	ok, reason = d.Add(cand(second, "https://a.example/2", "Vietnam", base.Add(30*time.Hour)))
	assert.True(t, ok, "reason %s", reason)
}

func TestAdd_SpecificTerms(t *testing.T) {
	d := NewDeduplicator(DefaultClassifier())
	ok, _ := d.Add(cand("Erawan output target set for 12 March", "https://a.example/1", "Thailand", base))
	require.True(t, ok)

	ok, reason := d.Add(cand("Erawan output target set for 12 March says minister", "https://a.example/2", CountryInternational, base))
	assert.False(t, ok)
	assert.Equal(t, DupSpecificTerms, reason)
}

func TestAdd_Invalid(t *testing.T) {
	d := NewDeduplicator(DefaultClassifier())
	ok, reason := d.Add(cand("", "https://a.example/1", "", base))
	assert.False(t, ok)
	assert.Equal(t, DupInvalid, reason)

	ok, reason = d.Add(cand("Some title", "", "", base))
	assert.False(t, ok)
	assert.Equal(t, DupInvalid, reason)
	assert.Zero(t, d.Len())
}

func TestAdd_AcceptedURLsUnique(t *testing.T) {
	d := NewDeduplicator(DefaultClassifier())
	links := []string{
		"https://a.example/x",
		"http://a.example/x/",
		"https://www.a.example/x?utm_campaign=z",
		"https://a.example/y",
	}
	titles := []string{"Grid upgrade completed", "Hydrogen breakthrough announced", "Wind turbines arrive", "Coal imports fall sharply"}
	for i := range links {
		d.Add(cand(titles[i], links[i], "", base))
	}
	seen := map[string]bool{}
	for _, c := range d.Accepted() {
		key := NormalizeURL(c.URL)
		assert.False(t, seen[key], "duplicate url %s", key)
		seen[key] = true
	}
	assert.Equal(t, 2, d.Len())
}

func TestIsDuplicateReason(t *testing.T) {
	assert.True(t, IsDuplicateReason(string(DupURL)))
	assert.True(t, IsDuplicateReason(string(DupSpecificTerms)))
	assert.False(t, IsDuplicateReason(string(DupInvalid)))
	assert.False(t, IsDuplicateReason(string(ReasonExcluded)))
}
