package news

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// Lexicon holds the fixed keyword tables used by the filter.
// It is parsed once and never modified afterwards.
type Lexicon struct {
	StopWords struct {
		Thai    []string `yaml:"thai"`
		English []string `yaml:"english"`
	} `yaml:"stopwords"`

	Exclude       []string          `yaml:"exclude"`
	Energy        []string          `yaml:"energy"`
	Market        []string          `yaml:"market"`
	Business      []string          `yaml:"business"`
	Significance  []string          `yaml:"significance"`
	Countries     []CountryKeywords `yaml:"countries"`
	International []string          `yaml:"international"`
	Grouping      []string          `yaml:"grouping"`
	Events        []EventKeywords   `yaml:"events"`
	Entities      []string          `yaml:"entities"`
	Projects      []string          `yaml:"projects"`
	SpecificTerms []string          `yaml:"specific_terms"`
}

// CountryKeywords maps a country tag to the words that identify it.
type CountryKeywords struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// EventKeywords maps an event type to its trigger words.
type EventKeywords struct {
	Type     string   `yaml:"type"`
	Keywords []string `yaml:"keywords"`
}

// ParseLexicon decodes a YAML lexicon.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("decode lexicon: %w", err)
	}
	if len(lex.Energy) == 0 {
		return nil, fmt.Errorf("lexicon has no energy keywords")
	}
	for _, c := range lex.Countries {
		if c.Name == "" {
			return nil, fmt.Errorf("lexicon country entry without name")
		}
	}
	return &lex, nil
}

// LoadLexicon reads a lexicon from path, or returns the embedded one when path is empty.
func LoadLexicon(path string) (*Lexicon, error) {
	if path == "" {
		return DefaultLexicon(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	return ParseLexicon(data)
}

var (
	defaultLexiconOnce sync.Once
	defaultLexicon     *Lexicon
)

// DefaultLexicon returns the embedded lexicon.
func DefaultLexicon() *Lexicon {
	defaultLexiconOnce.Do(func() {
		lex, err := ParseLexicon(defaultLexiconYAML)
		if err != nil {
			panic(err)
		}
		defaultLexicon = lex
	})
	return defaultLexicon
}

// keywordSet answers "which of these words occur in the text" with one pass
// over the text. Words are kept in table order.
type keywordSet struct {
	words   []string
	matcher *ahocorasick.Matcher
}

func newKeywordSet(words []string) *keywordSet {
	seen := make(map[string]bool, len(words))
	clean := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		clean = append(clean, w)
	}
	ks := &keywordSet{words: clean}
	if len(clean) > 0 {
		ks.matcher = ahocorasick.NewStringMatcher(clean)
	}
	return ks
}

// contains expects lower-cased text.
func (ks *keywordSet) contains(text string) bool {
	if ks.matcher == nil || text == "" {
		return false
	}
	return ks.matcher.Contains([]byte(text))
}

// matches returns the matched words in table order. Expects lower-cased text.
// Safe for concurrent use.
func (ks *keywordSet) matches(text string) []string {
	if ks.matcher == nil || text == "" {
		return nil
	}
	hits := ks.matcher.MatchThreadSafe([]byte(text))
	if len(hits) == 0 {
		return nil
	}
	found := make([]bool, len(ks.words))
	for _, i := range hits {
		if i >= 0 && i < len(found) {
			found[i] = true
		}
	}
	out := make([]string, 0, len(hits))
	for i, ok := range found {
		if ok {
			out = append(out, ks.words[i])
		}
	}
	return out
}
