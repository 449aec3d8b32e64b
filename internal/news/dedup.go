package news

import (
	"strings"
	"time"
)

// DuplicateReason says which check rejected an item.
type DuplicateReason string

const (
	DupURL                     DuplicateReason = "url_duplicate"
	DupSameEvent               DuplicateReason = "same_event"
	DupSameTitle               DuplicateReason = "same_title"
	DupFingerprint             DuplicateReason = "fingerprint_duplicate"
	DupSimilarTitle            DuplicateReason = "similar_title"
	DupSimilarTitleSameCountry DuplicateReason = "similar_title_same_country"
	DupKeywordCluster          DuplicateReason = "keyword_cluster"
	DupSpecificTerms           DuplicateReason = "specific_terms"
	DupInvalid                 DuplicateReason = "invalid"
)

// IsDuplicateReason reports whether reason names one of the duplicate checks.
func IsDuplicateReason(reason string) bool {
	switch DuplicateReason(reason) {
	case DupURL, DupSameEvent, DupSameTitle, DupFingerprint, DupSimilarTitle,
		DupSimilarTitleSameCountry, DupKeywordCluster, DupSpecificTerms:
		return true
	}
	return false
}

const (
	eventWindow = 24 * time.Hour

	sameTitleThreshold        = 0.95
	similarTitleThreshold     = 0.90
	sameCountryTitleThreshold = 0.80
	clusterSimilarity         = 0.70
	clusterOverlap            = 0.85
	clusterMinKeywords        = 3
	termsSimilarity           = 0.75
	termsMinShared            = 2
)

type acceptedItem struct {
	cand      Candidate
	lowTitle  string
	normTitle string
	keywords  []string
	terms     []string
}

type cachedTitle struct {
	norm     string
	original string
	country  string
}

// Deduplicator keeps the state of one filter run. Items should be added
// oldest first so the earliest report of a story is the one kept.
// Not safe for concurrent use.
type Deduplicator struct {
	cls *Classifier

	seenURLs         map[string]struct{}
	seenFingerprints map[string]struct{}
	events           map[string][]*acceptedItem
	titles           []cachedTitle
	accepted         []*acceptedItem
}

// NewDeduplicator returns an empty deduplicator.
func NewDeduplicator(cls *Classifier) *Deduplicator {
	return &Deduplicator{
		cls:              cls,
		seenURLs:         make(map[string]struct{}),
		seenFingerprints: make(map[string]struct{}),
		events:           make(map[string][]*acceptedItem),
	}
}

// Add accepts the candidate unless it duplicates an earlier one. The
// candidate's Fingerprint is filled in when empty. Rejected items still leave
// their URL, fingerprint and event signature behind.
func (d *Deduplicator) Add(c *Candidate) (bool, DuplicateReason) {
	if !c.Valid() {
		return false, DupInvalid
	}
	if c.Fingerprint == "" {
		c.Fingerprint = d.cls.ContentFingerprint(c)
	}

	item := &acceptedItem{
		lowTitle:  strings.ToLower(strings.TrimSpace(c.Title)),
		normTitle: d.cls.norm.Normalize(c.Title),
	}
	sig, hasSig := d.cls.EventSignature(c)

	if dup, reason := d.isDuplicate(c, item, sig, hasSig); dup {
		return false, reason
	}

	item.cand = *c
	if hasSig {
		d.events[sig] = append(d.events[sig], item)
	}
	d.titles = append(d.titles, cachedTitle{norm: item.normTitle, original: c.Title, country: c.Country})
	d.accepted = append(d.accepted, item)
	return true, ""
}

func (d *Deduplicator) isDuplicate(c *Candidate, item *acceptedItem, sig string, hasSig bool) (bool, DuplicateReason) {
	// Both URL forms are recorded whether or not the item survives.
	nu, cu := NormalizeURL(c.URL), c.CanonicalURL
	if cu == "" {
		cu = CanonicalURL(c.URL)
	}
	_, seenN := d.seenURLs[nu]
	_, seenC := d.seenURLs[cu]
	if nu != "" {
		d.seenURLs[nu] = struct{}{}
	}
	if cu != "" {
		d.seenURLs[cu] = struct{}{}
	}
	if seenN || seenC {
		return true, DupURL
	}

	if hasSig {
		bucket, known := d.events[sig]
		if !known {
			d.events[sig] = []*acceptedItem{}
		}
		for _, prev := range bucket {
			if withinWindow(c.Published, prev.cand.Published, eventWindow) {
				return true, DupSameEvent
			}
		}
	}

	sims := make([]float64, len(d.accepted))
	for i, prev := range d.accepted {
		if prev.lowTitle == item.lowTitle {
			return true, DupSameTitle
		}
		sims[i] = normalizedSimilarity(item.normTitle, prev.normTitle)
		if sims[i] > sameTitleThreshold {
			return true, DupSameTitle
		}
	}

	if _, ok := d.seenFingerprints[c.Fingerprint]; ok {
		return true, DupFingerprint
	}
	d.seenFingerprints[c.Fingerprint] = struct{}{}

	for _, t := range d.titles {
		s := normalizedSimilarity(item.normTitle, t.norm)
		if s > similarTitleThreshold {
			return true, DupSimilarTitle
		}
		if s > sameCountryTitleThreshold && t.country == c.Country {
			return true, DupSimilarTitleSameCountry
		}
	}

	item.keywords = d.cls.GroupingKeywords(c.Text())
	if len(item.keywords) >= clusterMinKeywords {
		for i, prev := range d.accepted {
			overlap := countShared(item.keywords, prev.keywords)
			if float64(overlap) >= clusterOverlap*float64(len(item.keywords)) &&
				sims[i] > clusterSimilarity &&
				withinWindow(c.Published, prev.cand.Published, eventWindow) {
				return true, DupKeywordCluster
			}
		}
	}

	item.terms = d.cls.SpecificTerms(c.Title)
	if len(item.terms) >= termsMinShared {
		for i, prev := range d.accepted {
			if countShared(item.terms, prev.terms) >= termsMinShared && sims[i] > termsSimilarity {
				return true, DupSpecificTerms
			}
		}
	}

	return false, ""
}

// Accepted returns the accepted candidates in acceptance order.
func (d *Deduplicator) Accepted() []Candidate {
	out := make([]Candidate, len(d.accepted))
	for i, a := range d.accepted {
		out[i] = a.cand
	}
	return out
}

// Len is the number of accepted candidates.
func (d *Deduplicator) Len() int {
	return len(d.accepted)
}

func countShared(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	n := 0
	for _, s := range a {
		if _, ok := set[s]; ok {
			n++
		}
	}
	return n
}
