package news

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// ReasonCode is the outcome of the relevance check.
type ReasonCode string

const (
	ReasonExcluded          ReasonCode = "excluded"
	ReasonNotEnergy         ReasonCode = "not_energy"
	ReasonEnergyMarket      ReasonCode = "energy_market"
	ReasonEnergyBusiness    ReasonCode = "energy_business"
	ReasonEnergyCountry     ReasonCode = "energy_country"
	ReasonEnergySignificant ReasonCode = "energy_significant"
	ReasonEnergyLongText    ReasonCode = "energy_long_text"
	ReasonNoSignal          ReasonCode = "no_signal"
)

// longTextRunes is the length above which an energy item is kept without any
// other signal.
const longTextRunes = 100

type countrySet struct {
	name string
	set  *keywordSet
}

type eventSet struct {
	kind string
	set  *keywordSet
}

// Classifier applies the lexicon: relevance, country, fingerprints and
// specific-term extraction. Not safe for concurrent use.
type Classifier struct {
	norm *Normalizer

	exclude       *keywordSet
	energy        *keywordSet
	market        *keywordSet
	business      *keywordSet
	significance  *keywordSet
	countries     []countrySet
	anyCountry    *keywordSet
	international *keywordSet
	grouping      *keywordSet
	events        []eventSet
	entities      *keywordSet
	projects      *keywordSet
	specific      *keywordSet
}

// NewClassifier compiles the lexicon tables.
func NewClassifier(lex *Lexicon) *Classifier {
	c := &Classifier{
		norm:          NewNormalizer(lex),
		exclude:       newKeywordSet(lex.Exclude),
		energy:        newKeywordSet(lex.Energy),
		market:        newKeywordSet(lex.Market),
		business:      newKeywordSet(lex.Business),
		significance:  newKeywordSet(lex.Significance),
		international: newKeywordSet(lex.International),
		grouping:      newKeywordSet(lex.Grouping),
		entities:      newKeywordSet(lex.Entities),
		projects:      newKeywordSet(lex.Projects),
		specific:      newKeywordSet(append(append([]string{}, lex.Projects...), lex.SpecificTerms...)),
	}
	var all []string
	for _, ck := range lex.Countries {
		c.countries = append(c.countries, countrySet{name: ck.Name, set: newKeywordSet(ck.Keywords)})
		all = append(all, ck.Keywords...)
	}
	c.anyCountry = newKeywordSet(all)
	for _, ek := range lex.Events {
		c.events = append(c.events, eventSet{kind: ek.Type, set: newKeywordSet(ek.Keywords)})
	}
	return c
}

var (
	defaultClassifierOnce sync.Once
	defaultClassifier     *Classifier
)

// DefaultClassifier is built from the embedded lexicon.
func DefaultClassifier() *Classifier {
	defaultClassifierOnce.Do(func() {
		defaultClassifier = NewClassifier(DefaultLexicon())
	})
	return defaultClassifier
}

// Normalize uses the classifier's stop-words.
func (c *Classifier) Normalize(text string) string {
	return c.norm.Normalize(text)
}

// CheckValidEnergyNews decides whether text is energy news worth sending.
// Exclusion terms win over everything else; after that an energy term must be
// backed by a market, business, country or significance term, or by length.
// The explanation list is meant for logs.
func (c *Classifier) CheckValidEnergyNews(text string) (bool, ReasonCode, []string) {
	lower := strings.ToLower(text)

	if hits := c.exclude.matches(lower); len(hits) > 0 {
		return false, ReasonExcluded, []string{"excluded topic: " + strings.Join(hits, ", ")}
	}

	energy := c.energy.matches(lower)
	market := c.market.matches(lower)
	if len(energy) == 0 && len(market) == 0 {
		return false, ReasonNotEnergy, []string{"no energy or market keyword"}
	}
	if len(energy) == 0 {
		return false, ReasonNoSignal, []string{"market: " + strings.Join(market, ", "), "no energy keyword"}
	}

	why := []string{"energy: " + strings.Join(energy, ", ")}
	if len(market) > 0 {
		return true, ReasonEnergyMarket, append(why, "market: "+strings.Join(market, ", "))
	}
	if hits := c.business.matches(lower); len(hits) > 0 {
		return true, ReasonEnergyBusiness, append(why, "business: "+strings.Join(hits, ", "))
	}
	if hits := c.anyCountry.matches(lower); len(hits) > 0 {
		return true, ReasonEnergyCountry, append(why, "country: "+strings.Join(hits, ", "))
	}
	if hits := c.significance.matches(lower); len(hits) > 0 {
		return true, ReasonEnergySignificant, append(why, "significance: "+strings.Join(hits, ", "))
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(text)); n > longTextRunes {
		return true, ReasonEnergyLongText, append(why, "long text")
	}
	return false, ReasonNoSignal, append(why, "no business/market/country signal")
}

// DetectCountry returns the first country of the table mentioned in text,
// CountryInternational for international bodies and major powers, or "".
func (c *Classifier) DetectCountry(text string) string {
	lower := strings.ToLower(text)
	for _, cs := range c.countries {
		if cs.set.contains(lower) {
			return cs.name
		}
	}
	if c.international.contains(lower) {
		return CountryInternational
	}
	return ""
}

// ProjectHints returns up to two named projects mentioned in text.
func (c *Classifier) ProjectHints(text string) []string {
	hits := c.projects.matches(strings.ToLower(text))
	if len(hits) > 2 {
		hits = hits[:2]
	}
	return hits
}

// CheckValidEnergyNews uses the embedded lexicon.
func CheckValidEnergyNews(text string) (bool, ReasonCode, []string) {
	return DefaultClassifier().CheckValidEnergyNews(text)
}

// DetectCountry uses the embedded lexicon.
func DetectCountry(text string) string {
	return DefaultClassifier().DetectCountry(text)
}
