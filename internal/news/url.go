package news

import (
	"net/url"
	"strings"
)

// trackingParams are dropped from URLs before comparison.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"igshid":  true,
	"mc_cid":  true,
	"mc_eid":  true,
	"ref":     true,
	"ref_src": true,
	"cmpid":   true,
}

// NormalizeURL returns the comparison key of a link: https scheme, lower-case
// host without "www.", no fragment, no tracking parameters, no trailing slash.
// Remaining query parameters are kept in sorted order.
func NormalizeURL(raw string) string {
	return normalizeURL(raw)
}

// CanonicalURL is the key stored on a Candidate. Query parameters that pick
// the article, like view.php?id=101, are part of it.
func CanonicalURL(raw string) string {
	return normalizeURL(raw)
}

func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	withScheme := raw
	if !strings.Contains(raw, "://") {
		withScheme = "https://" + raw
	}
	u, err := url.Parse(withScheme)
	if err != nil || u.Host == "" {
		s := strings.ToLower(raw)
		if i := strings.IndexByte(s, '#'); i >= 0 {
			s = s[:i]
		}
		return s
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimRight(u.EscapedPath(), "/")

	var b strings.Builder
	b.WriteString("https://")
	b.WriteString(host)
	b.WriteString(path)

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			lk := strings.ToLower(key)
			if trackingParams[lk] || strings.HasPrefix(lk, "utm_") {
				q.Del(key)
			}
		}
		if enc := q.Encode(); enc != "" {
			b.WriteByte('?')
			b.WriteString(enc)
		}
	}
	return b.String()
}
