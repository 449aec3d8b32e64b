// Package app wires feeds, the news filter, enrichment and delivery into one run.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/deusflow/energynews/internal/config"
	"github.com/deusflow/energynews/internal/gemini"
	"github.com/deusflow/energynews/internal/logger"
	"github.com/deusflow/energynews/internal/message"
	"github.com/deusflow/energynews/internal/metrics"
	"github.com/deusflow/energynews/internal/news"
	"github.com/deusflow/energynews/internal/prices"
	"github.com/deusflow/energynews/internal/publish"
	"github.com/deusflow/energynews/internal/ratelimit"
	"github.com/deusflow/energynews/internal/retry"
	"github.com/deusflow/energynews/internal/rss"
	"github.com/deusflow/energynews/internal/scraper"
	"github.com/deusflow/energynews/internal/storage"
	"github.com/deusflow/energynews/internal/telegram"
)

const geminiProvider = "gemini"

// Sender delivers rendered messages.
type Sender interface {
	SendMessage(ctx context.Context, text string) error
	SendPhoto(ctx context.Context, photoURL, caption string) error
}

// Summarizer rewrites an article into a short summary.
type Summarizer interface {
	SummarizeNews(ctx context.Context, title, content string) (*gemini.NewsSummary, error)
}

// Report summarises one run.
type Report struct {
	RunID       string
	Fetched     int
	AlreadySent int
	Accepted    int
	Rejected    map[string]int
	Selected    int
	Summarized  int
	Quotes      int
	Delivered   int
	DryRun      bool
	Messages    []string
	Duration    time.Duration
}

// App holds the collaborators of a run. It can be reused across runs.
type App struct {
	cfg        *config.Config
	classifier *news.Classifier
	fetcher    *rss.Fetcher
	scraper    *scraper.Client
	store      storage.SentStore
	prices     *prices.Client
	summarizer Summarizer
	sender     Sender
	limiter    *ratelimit.Limiter
	metrics    *metrics.Metrics
	now        func() time.Time
	closers    []func()
}

// New builds an App from cfg. Optional collaborators (prices, Gemini) are
// left out when their API keys are empty.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	lex, err := news.LoadLexicon(cfg.LexiconPath)
	if err != nil {
		return nil, err
	}

	store, err := OpenSentStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rc := retry.RetryConfig{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: true}
	limiter := ratelimit.New(map[string]ratelimit.Limit{
		prices.Provider: {RPS: cfg.PriceRPS, Burst: 1},
		geminiProvider:  {RPS: 1, Burst: 1, Budget: cfg.MaxGeminiRequests},
	})

	tg := telegram.NewClient(cfg.TelegramToken, cfg.TelegramChatID)
	tg.HTTP.Timeout = cfg.RequestTimeout
	tg.Retry = rc

	a := &App{
		cfg:        cfg,
		classifier: news.NewClassifier(lex),
		fetcher:    rss.NewFetcher(cfg.RequestTimeout, rc),
		scraper:    scraper.NewClient(cfg.RequestTimeout),
		store:      store,
		sender:     tg,
		limiter:    limiter,
		metrics:    metrics.Global,
		now:        time.Now,
	}

	if cfg.PriceAPIKey != "" {
		pc := prices.NewClient(cfg.PriceAPIURL, cfg.PriceAPIKey, limiter, cfg.PriceCacheTTL)
		pc.HTTP.Timeout = cfg.RequestTimeout
		a.prices = pc
	}

	if cfg.GeminiAPIKey != "" {
		gc, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Warn("Gemini disabled", "error", err)
		} else {
			a.summarizer = gc
			a.closers = append(a.closers, gc.Close)
		}
	}
	return a, nil
}

// Close releases the sent store and API clients.
func (a *App) Close() error {
	for _, c := range a.closers {
		c()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Run executes one collection and delivery run with a fresh App.
func Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	a, err := New(ctx, cfg)
	if err != nil {
		metrics.Global.SetError(err.Error())
		return nil, err
	}
	report, err := a.Run(ctx)
	if cerr := a.Close(); cerr != nil {
		logger.Warn("failed to close sent store", "error", cerr)
	}
	return report, err
}

// Run fetches, filters, enriches and delivers one batch of news. Items are
// marked as sent only after delivery succeeds.
func (a *App) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	runID := ulid.Make().String()
	log := logger.With("run_id", runID)
	report := &Report{RunID: runID, DryRun: a.cfg.DryRun}

	err := a.run(ctx, log, report)
	report.Duration = time.Since(start)
	a.metrics.RecordProcessingTime(report.Duration)
	if err != nil {
		a.metrics.SetError(err.Error())
		log.Error("run failed", "error", err)
		return report, err
	}
	a.metrics.SetLastRun(runID)
	log.Info("run finished",
		"fetched", report.Fetched, "already_sent", report.AlreadySent, "accepted", report.Accepted,
		"selected", report.Selected, "delivered", report.Delivered, "dry_run", report.DryRun,
		"duration", report.Duration)
	return report, nil
}

func (a *App) run(ctx context.Context, log *slog.Logger, report *Report) error {
	feeds, err := rss.LoadFeeds(a.cfg.FeedsConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load feeds: %w", err)
	}

	raw := a.fetcher.FetchAll(ctx, feeds)
	report.Fetched = len(raw)
	a.metrics.AddNewsProcessed(len(raw))
	if err := ctx.Err(); err != nil {
		return err
	}

	news.SortOldestFirst(raw)
	fresh := a.skipSent(ctx, log, raw)
	report.AlreadySent = len(raw) - len(fresh)

	pipeline := news.NewPipeline(a.classifier, news.Options{
		HomeCountry:       a.cfg.HomeCountry,
		DomesticFeedTypes: a.cfg.DomesticFeedTypes,
		SummaryMaxRunes:   a.cfg.SummaryMaxRunes,
		MaxAge:            a.cfg.NewsMaxAge,
		Now:               a.now,
		Log:               log.With("component", "news"),
	})
	res := pipeline.Process(fresh)
	report.Accepted = res.Stats.Accepted
	report.Rejected = res.Stats.Rejected
	a.metrics.AddAccepted(res.Stats.Accepted)
	a.metrics.RecordRejections(res.Stats.Rejected, news.IsDuplicateReason)
	log.Info("filtered news", "input", res.Stats.Input, "accepted", res.Stats.Accepted, "rejected", res.Stats.Rejected)

	selected := newestFirst(res.Accepted, a.cfg.MaxNewsLimit)
	report.Selected = len(selected)
	if len(selected) == 0 {
		log.Info("no new energy news to send")
		return nil
	}

	items, summarized := a.enrich(ctx, log, selected)
	report.Summarized = summarized

	var delivered []news.Candidate
	switch a.cfg.BotMode {
	case config.ModeSingle:
		delivered, err = a.deliverCards(ctx, log, selected, items, report)
	default:
		quotes := a.fetchQuotes(ctx)
		report.Quotes = len(quotes)
		delivered, err = a.deliverDigest(ctx, log, selected, items, quotes, report)
	}
	if err != nil {
		return err
	}
	report.Delivered = len(delivered)

	if !a.cfg.DryRun {
		a.markSent(ctx, log, delivered, report.RunID)
	}

	if a.cfg.OutputFeedPath != "" {
		if err := publish.WriteRSS(a.cfg.OutputFeedPath, a.cfg.OutputFeedTitle, a.cfg.OutputFeedLink, delivered, a.now()); err != nil {
			log.Warn("failed to write output feed", "path", a.cfg.OutputFeedPath, "error", err)
		} else {
			log.Info("wrote output feed", "path", a.cfg.OutputFeedPath, "items", len(delivered))
		}
	}
	return nil
}

// skipSent drops items whose URL is already in the sent store. Store errors
// keep the item; the in-run dedup still applies.
func (a *App) skipSent(ctx context.Context, log *slog.Logger, raw []news.RawItem) []news.RawItem {
	fresh := make([]news.RawItem, 0, len(raw))
	for _, item := range raw {
		key := news.NormalizeURL(item.Link)
		if key != "" {
			sent, err := a.store.IsSent(ctx, key)
			if err != nil {
				log.Warn("sent store lookup failed", "url", item.Link, "error", err)
			} else if sent {
				log.Debug("already sent", "url", item.Link)
				continue
			}
		}
		fresh = append(fresh, item)
	}
	return fresh
}

// newestFirst returns up to limit candidates, most recently published first.
// Items without a timestamp go last.
func newestFirst(accepted []news.Candidate, limit int) []news.Candidate {
	out := make([]news.Candidate, len(accepted))
	copy(out, accepted)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].HasPublished(), out[j].HasPublished()
		if pi != pj {
			return pi
		}
		return out[i].Published.After(out[j].Published)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// enrich adds article previews and, when Gemini is configured, model summaries.
func (a *App) enrich(ctx context.Context, log *slog.Logger, selected []news.Candidate) ([]message.Item, int) {
	var previews map[string]*scraper.Preview
	if a.cfg.ScrapeMaxArticles > 0 {
		links := make([]string, 0, len(selected))
		for _, c := range selected {
			links = append(links, c.URL)
		}
		previews = a.scraper.ExtractPreviews(ctx, links, a.cfg.ScrapeMaxArticles)
	}

	items := make([]message.Item, 0, len(selected))
	summarized := 0
	useModel := a.summarizer != nil
	for _, c := range selected {
		item := message.Item{
			Title:     c.Title,
			URL:       c.URL,
			Summary:   c.Summary,
			Country:   c.Country,
			Source:    c.SourceFeed,
			Projects:  c.ProjectHints,
			Published: c.Published,
		}
		content := c.Summary
		if p := previews[c.URL]; p != nil {
			item.ImageURL = p.ImageURL
			if p.Text != "" {
				content = p.Text
			}
			if item.Summary == "" {
				item.Summary = p.Description
			}
		}

		if useModel && content != "" {
			switch s, err := a.summarize(ctx, c.Title, content); {
			case errors.Is(err, ratelimit.ErrBudgetExhausted):
				useModel = false
			case err != nil:
				log.Warn("Gemini summary failed", "title", c.Title, "error", err)
				item.Summary = gemini.FallbackSummary(content)
			default:
				item.Summary = s.Summary
				summarized++
				a.metrics.IncrementSummariesGenerated()
			}
		}
		items = append(items, item)
	}
	return items, summarized
}

func (a *App) summarize(ctx context.Context, title, content string) (*gemini.NewsSummary, error) {
	if err := a.limiter.Wait(ctx, geminiProvider); err != nil {
		return nil, err
	}
	return a.summarizer.SummarizeNews(ctx, title, content)
}

func (a *App) fetchQuotes(ctx context.Context) []prices.Quote {
	if a.prices == nil || len(a.cfg.PriceCodes) == 0 {
		return nil
	}
	quotes, errs := a.prices.FetchAll(ctx, a.cfg.PriceCodes)
	for range errs {
		a.metrics.IncrementPriceFetchErrors()
	}
	return quotes
}

func (a *App) digestOptions() message.DigestOptions {
	return message.DigestOptions{
		HomeCountry:  a.cfg.HomeCountry,
		Date:         a.now(),
		SummaryRunes: a.cfg.SummaryMaxRunes,
	}
}

func (a *App) deliverDigest(ctx context.Context, log *slog.Logger, selected []news.Candidate, items []message.Item, quotes []prices.Quote, report *Report) ([]news.Candidate, error) {
	msg, n := message.FitDigest(items, quotes, a.digestOptions(), message.MaxDigestRunes)
	if n < len(items) {
		log.Warn("digest too long, dropped items", "kept", n, "selected", len(items))
	}
	if n == 0 {
		return nil, fmt.Errorf("digest cannot fit a single item")
	}
	report.Messages = append(report.Messages, msg)

	if a.cfg.DryRun {
		log.Info("dry run, digest not sent", "runes", len([]rune(msg)), "items", n)
		return selected[:n], nil
	}
	if err := a.sender.SendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to send digest: %w", err)
	}
	a.metrics.IncrementTelegramMessagesSent()
	return selected[:n], nil
}

// deliverCards sends one message per item, as a photo when a preview image
// exists. The run fails only when nothing could be delivered.
func (a *App) deliverCards(ctx context.Context, log *slog.Logger, selected []news.Candidate, items []message.Item, report *Report) ([]news.Candidate, error) {
	var delivered []news.Candidate
	var lastErr error
	for i, item := range items {
		card := message.BuildCard(item)
		report.Messages = append(report.Messages, card)
		if a.cfg.DryRun {
			delivered = append(delivered, selected[i])
			continue
		}

		var err error
		if item.ImageURL != "" {
			err = a.sender.SendPhoto(ctx, item.ImageURL, card)
			if err != nil {
				log.Warn("photo send failed, falling back to text", "url", item.URL, "error", err)
				err = a.sender.SendMessage(ctx, card)
			}
		} else {
			err = a.sender.SendMessage(ctx, card)
		}
		if err != nil {
			log.Error("failed to send news", "url", item.URL, "error", err)
			lastErr = err
			continue
		}
		a.metrics.IncrementTelegramMessagesSent()
		delivered = append(delivered, selected[i])
	}
	if len(delivered) == 0 && lastErr != nil {
		return nil, fmt.Errorf("failed to send any news: %w", lastErr)
	}
	return delivered, nil
}

func (a *App) markSent(ctx context.Context, log *slog.Logger, delivered []news.Candidate, runID string) {
	for _, c := range delivered {
		rec := storage.SentRecord{
			URL:         news.NormalizeURL(c.URL),
			Title:       c.Title,
			Country:     c.Country,
			Source:      c.SourceFeed,
			Fingerprint: c.Fingerprint,
			RunID:       runID,
		}
		if err := a.store.MarkAsSent(ctx, rec); err != nil {
			log.Warn("failed to mark news as sent", "url", c.URL, "error", err)
		}
	}
	if removed, err := a.store.Cleanup(ctx); err != nil {
		log.Warn("sent store cleanup failed", "error", err)
	} else if removed > 0 {
		log.Info("removed expired sent records", "count", removed)
	}
}
