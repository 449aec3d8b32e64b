package news

import (
	"html"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

var (
	reTags = regexp.MustCompile(`<[^>]*>`)
	reURL  = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

// Normalizer produces the comparison form of a text: lower-case, no URLs,
// no punctuation, no digits, no stop-words, no single-character words.
// The output is only ever compared, never displayed.
type Normalizer struct {
	stop map[string]struct{}
}

// NewNormalizer builds a normalizer from the lexicon's Thai and English stop-words.
func NewNormalizer(lex *Lexicon) *Normalizer {
	stop := make(map[string]struct{}, len(lex.StopWords.Thai)+len(lex.StopWords.English))
	for _, w := range lex.StopWords.Thai {
		stop[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	for _, w := range lex.StopWords.English {
		stop[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return &Normalizer{stop: stop}
}

// Normalize is deterministic and idempotent; empty input yields empty output.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = reTags.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = strings.ToLower(text)
	text = reURL.ReplaceAllString(text, " ")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(r)
		case unicode.IsDigit(r):
			// digit runs are dropped
		case isWordRune(r):
			b.WriteRune(r)
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) <= 1 {
			continue
		}
		if _, ok := n.stop[w]; ok {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// isWordRune keeps combining marks so Thai vowels and tone marks survive.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r)
}

var (
	defaultNormalizerOnce sync.Once
	defaultNormalizer     *Normalizer
)

// Normalize uses the stop-words of the embedded lexicon.
func Normalize(text string) string {
	defaultNormalizerOnce.Do(func() {
		defaultNormalizer = NewNormalizer(DefaultLexicon())
	})
	return defaultNormalizer.Normalize(text)
}
