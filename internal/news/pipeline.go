package news

import (
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/energynews/internal/logger"
)

// Stage names the step of the pipeline that dropped an item.
type Stage string

const (
	StageInvalid    Stage = "invalid"
	StageStale      Stage = "stale"
	StageClassifier Stage = "classifier"
	StageDedup      Stage = "dedup"
)

// DefaultSummaryRunes is used when Options.SummaryMaxRunes is zero.
const DefaultSummaryRunes = 300

// Options tune a Pipeline. The zero value is usable.
type Options struct {
	// HomeCountry is assigned to items from domestic feeds when no country
	// is mentioned.
	HomeCountry       string
	DomesticFeedTypes []string
	SummaryMaxRunes   int
	// MaxAge drops items published earlier than Now()-MaxAge. Zero disables it.
	MaxAge time.Duration
	Now    func() time.Time
	Log    *slog.Logger
}

// Rejection records why one item was dropped.
type Rejection struct {
	Candidate Candidate
	Stage     Stage
	Reason    string
	Details   []string
}

// Stats counts a run's outcomes. Rejected is keyed by reason.
type Stats struct {
	Input    int
	Accepted int
	Rejected map[string]int
}

// Result is the outcome of Process.
type Result struct {
	Accepted []Candidate
	Rejected []Rejection
	Stats    Stats
}

// Pipeline runs classification and deduplication over a batch of raw items.
type Pipeline struct {
	cls      *Classifier
	opts     Options
	domestic map[string]bool
}

// NewPipeline returns a pipeline backed by cls.
func NewPipeline(cls *Classifier, opts Options) *Pipeline {
	if opts.SummaryMaxRunes == 0 {
		opts.SummaryMaxRunes = DefaultSummaryRunes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logger.With("component", "news")
	}
	domestic := make(map[string]bool, len(opts.DomesticFeedTypes))
	for _, t := range opts.DomesticFeedTypes {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			domestic[t] = true
		}
	}
	return &Pipeline{cls: cls, opts: opts, domestic: domestic}
}

// Process folds items in the given order through a fresh Deduplicator.
// Callers wanting the earliest report kept should call SortOldestFirst first.
func (p *Pipeline) Process(items []RawItem) Result {
	res := Result{Stats: Stats{Input: len(items), Rejected: map[string]int{}}}
	dedup := NewDeduplicator(p.cls)

	var cutoff time.Time
	if p.opts.MaxAge > 0 {
		cutoff = p.opts.Now().Add(-p.opts.MaxAge)
	}

	reject := func(c Candidate, st Stage, reason string, details []string) {
		res.Rejected = append(res.Rejected, Rejection{Candidate: c, Stage: st, Reason: reason, Details: details})
		res.Stats.Rejected[reason]++
		p.opts.Log.Debug("news rejected",
			"stage", st, "reason", reason, "title", c.Title, "feed", c.SourceFeed, "details", details)
	}

	for _, raw := range items {
		c := NewCandidate(raw, p.opts.SummaryMaxRunes)
		if !c.Valid() {
			reject(c, StageInvalid, string(DupInvalid), nil)
			continue
		}
		if !cutoff.IsZero() && c.HasPublished() && c.Published.Before(cutoff) {
			reject(c, StageStale, "too_old", []string{"published " + c.Published.Format(time.RFC3339)})
			continue
		}

		ok, code, why := p.cls.CheckValidEnergyNews(c.Text())
		if !ok {
			reject(c, StageClassifier, string(code), why)
			continue
		}

		c.Country = p.cls.DetectCountry(c.Text())
		if c.Country == "" && p.domestic[strings.ToLower(c.FeedType)] {
			c.Country = p.opts.HomeCountry
		}
		c.ProjectHints = p.cls.ProjectHints(c.Text())
		c.Fingerprint = p.cls.ContentFingerprint(&c)

		if added, reason := dedup.Add(&c); !added {
			reject(c, StageDedup, string(reason), nil)
			continue
		}
		p.opts.Log.Debug("news accepted", "title", c.Title, "country", c.Country, "reason", code)
	}

	res.Accepted = dedup.Accepted()
	res.Stats.Accepted = len(res.Accepted)
	return res
}
