package news

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

var (
	reNumber = regexp.MustCompile(`\d+(?:st|nd|rd|th)?`)

	reDate = regexp.MustCompile(`(?i)\b\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?\b` +
		`|\b\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?(?:\s+\d{4})?` +
		`|\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2}\b` +
		`|\d{1,2}\s*(?:มกราคม|กุมภาพันธ์|มีนาคม|เมษายน|พฤษภาคม|มิถุนายน|กรกฎาคม|สิงหาคม|กันยายน|ตุลาคม|พฤศจิกายน|ธันวาคม` +
		`|ม\.ค\.|ก\.พ\.|มี\.ค\.|เม\.ย\.|พ\.ค\.|มิ\.ย\.|ก\.ค\.|ส\.ค\.|ก\.ย\.|ต\.ค\.|พ\.ย\.|ธ\.ค\.)`)

	reMoney = regexp.MustCompile(`(?i)\$\s?\d[\d,.]*(?:\s?(?:million|billion|bn|mn))?` +
		`|\b(?:usd|thb|us\$)\s?\d[\d,.]*(?:\s?(?:million|billion|bn|mn))?` +
		`|\d[\d,.]*\s?(?:million|billion|bn)?\s?(?:dollars|baht|usd|thb)\b` +
		`|\d[\d,.]*\s?(?:ล้านล้านบาท|ล้านบาท|พันล้านบาท|บาท|ล้านดอลลาร์|ดอลลาร์)`)
)

// GroupingKeywords returns the grouping keywords found in text, sorted.
func (c *Classifier) GroupingKeywords(text string) []string {
	hits := c.grouping.matches(strings.ToLower(text))
	sort.Strings(hits)
	return hits
}

// ContentFingerprint hashes the normalized title, the country and the
// grouping keywords of the item. Two items with the same fingerprint are
// treated as the same story.
func (c *Classifier) ContentFingerprint(cand *Candidate) string {
	kw := c.GroupingKeywords(cand.Text())
	src := c.norm.Normalize(cand.Title) + "|" + cand.Country + "|" + strings.Join(kw, "|")
	return hashKey(src)
}

// EventSignature identifies a real-world event by type, country, the numbers
// mentioned and the named entities. ok is false when no event keyword occurs,
// in which case the item has no signature.
func (c *Classifier) EventSignature(cand *Candidate) (sig string, ok bool) {
	text := strings.ToLower(cand.Text())

	kind := ""
	for _, ev := range c.events {
		if ev.set.contains(text) {
			kind = ev.kind
			break
		}
	}
	if kind == "" {
		return "", false
	}

	nums := eventNumbers(text, 3)
	sort.Strings(nums)

	ents := c.entities.matches(text)
	if len(ents) > 2 {
		ents = ents[:2]
	}
	sort.Strings(ents)

	raw := kind + "|" + cand.Country + "|" + strings.Join(nums, ",") + "|" + strings.Join(ents, ",")
	return hashKey(raw), true
}

// eventNumbers returns up to max distinct numbers in order of appearance,
// with ordinal suffixes and leading zeros removed.
func eventNumbers(text string, max int) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range reNumber.FindAllString(text, -1) {
		n := strings.TrimRight(m, "stndrh")
		n = strings.TrimLeft(n, "0")
		if n == "" {
			n = "0"
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		if len(out) == max {
			break
		}
	}
	return out
}

// SpecificTerms extracts dates, known project and country names and money
// amounts from a title. Terms are lower-cased with collapsed whitespace.
func (c *Classifier) SpecificTerms(title string) []string {
	lower := strings.ToLower(title)
	var out []string
	seen := map[string]bool{}
	add := func(t string) {
		t = strings.Join(strings.Fields(t), " ")
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
	}
	for _, m := range reDate.FindAllString(lower, -1) {
		add(m)
	}
	for _, m := range c.specific.matches(lower) {
		add(m)
	}
	for _, m := range reMoney.FindAllString(lower, -1) {
		add(m)
	}
	return out
}

func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:32]
}
