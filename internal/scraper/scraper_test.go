package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<html><head>
<title>Fallback title</title>
<meta property="og:title" content="EGAT signs solar deal">
<meta property="og:image" content="/img/solar.jpg">
<meta name="description" content="EGAT agreed to buy power from a new solar farm.">
</head><body>
<article>
<p>Short.</p>
<p>The Electricity Generating Authority of Thailand signed a purchase agreement on Monday.</p>
<p>Subscribe to our newsletter for more energy stories every single morning.</p>
</article>
</body></html>`

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "Oil & gas prices rise", HTMLToText("<p>Oil &amp; gas</p><p>prices   rise</p>"))
	assert.Equal(t, "plain text", HTMLToText("  plain \n text "))
	assert.Equal(t, "keep", HTMLToText("<script>var x=1;</script>keep"))
}

func TestExtractPreview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	p, err := c.ExtractPreview(context.Background(), srv.URL+"/news/1")
	require.NoError(t, err)
	assert.Equal(t, "EGAT signs solar deal", p.Title)
	assert.Equal(t, srv.URL+"/img/solar.jpg", p.ImageURL)
	assert.Equal(t, "EGAT agreed to buy power from a new solar farm.", p.Description)
	assert.Equal(t, "The Electricity Generating Authority of Thailand signed a purchase agreement on Monday.", p.Text)
}

func TestExtractPreview_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewClient(time.Second).ExtractPreview(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "404")
}

func TestExtractPreviews_SkipsFailuresAndCaps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	c.Pause = 0
	got := c.ExtractPreviews(context.Background(), []string{srv.URL + "/a", srv.URL + "/bad", srv.URL + "/c"}, 2)
	assert.Len(t, got, 1)
	assert.Contains(t, got, srv.URL+"/a")
}
