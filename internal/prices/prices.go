// Package prices fetches commodity quotes (crude, gas, coal) for the digest header.
package prices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deusflow/energynews/internal/cache"
	"github.com/deusflow/energynews/internal/logger"
	"github.com/deusflow/energynews/internal/ratelimit"
	"github.com/deusflow/energynews/internal/retry"
)

// ErrNoQuote means the API answered but carried no usable price.
var ErrNoQuote = errors.New("no quote returned")

// Provider is the limiter key used for the price API.
const Provider = "prices"

// Quote is the latest price of one commodity.
type Quote struct {
	Code          string
	Name          string
	Price         float64
	Currency      string
	ChangePercent float64
	UpdatedAt     time.Time
}

var names = map[string]string{
	"BRENT_CRUDE_USD":    "Brent",
	"WTI_USD":            "WTI",
	"NATURAL_GAS_USD":    "Henry Hub Gas",
	"DUTCH_TTF_EUR":      "TTF Gas",
	"JKM_LNG_USD":        "JKM LNG",
	"COAL_USD":           "Coal",
	"NEWCASTLE_COAL_USD": "Newcastle Coal",
}

// DisplayName returns a short label for code.
func DisplayName(code string) string {
	if n, ok := names[code]; ok {
		return n
	}
	return strings.ReplaceAll(code, "_", " ")
}

// Client fetches commodity quotes and caches them for CacheTTL.
type Client struct {
	BaseURL  string
	APIKey   string
	HTTP     *http.Client
	Retry    retry.RetryConfig
	Limiter  *ratelimit.Limiter
	CacheTTL time.Duration

	cache *cache.Cache[Quote]
}

func NewClient(baseURL, apiKey string, limiter *ratelimit.Limiter, cacheTTL time.Duration) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   apiKey,
		HTTP:     &http.Client{Timeout: 15 * time.Second},
		Retry:    retry.RetryConfig{MaxAttempts: 3, Delay: time.Second, Backoff: true},
		Limiter:  limiter,
		CacheTTL: cacheTTL,
		cache:    cache.New[Quote](),
	}
}

type latestResponse struct {
	Status string `json:"status"`
	Data   struct {
		Price     float64 `json:"price"`
		Formatted string  `json:"formatted"`
		Currency  string  `json:"currency"`
		Code      string  `json:"code"`
		CreatedAt string  `json:"created_at"`
		Changes   struct {
			Day struct {
				Percent float64 `json:"percent"`
			} `json:"24h"`
		} `json:"changes"`
	} `json:"data"`
}

// Latest returns the most recent quote for code, served from cache when fresh.
func (c *Client) Latest(ctx context.Context, code string) (Quote, error) {
	if q, ok := c.cache.Get(code); ok {
		return q, nil
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx, Provider); err != nil {
			return Quote{}, err
		}
	}

	q, err := retry.Do(ctx, c.Retry, func() (Quote, error) {
		return c.fetch(ctx, code)
	})
	if err != nil {
		return Quote{}, fmt.Errorf("price %s: %w", code, err)
	}

	if c.CacheTTL > 0 {
		c.cache.Set(code, q, c.CacheTTL)
	}
	return q, nil
}

// FetchAll returns the quotes that could be fetched plus one error per failed code.
func (c *Client) FetchAll(ctx context.Context, codes []string) ([]Quote, []error) {
	var quotes []Quote
	var errs []error
	for _, code := range codes {
		q, err := c.Latest(ctx, code)
		if err != nil {
			logger.Warn("price fetch failed", "code", code, "error", err)
			errs = append(errs, err)
			if errors.Is(err, ratelimit.ErrBudgetExhausted) || ctx.Err() != nil {
				break
			}
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, errs
}

func (c *Client) fetch(ctx context.Context, code string) (Quote, error) {
	u := fmt.Sprintf("%s/prices/latest?by_code=%s", c.BaseURL, url.QueryEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Quote{}, retry.Permanent(err)
	}
	req.Header.Set("Authorization", "Token "+c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return Quote{}, retry.Permanent(err)
		}
		return Quote{}, err
	}

	var lr latestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&lr); err != nil {
		return Quote{}, retry.Permanent(fmt.Errorf("decode: %w", err))
	}
	if lr.Status != "success" || lr.Data.Price <= 0 {
		return Quote{}, retry.Permanent(fmt.Errorf("%w (status %q)", ErrNoQuote, lr.Status))
	}

	q := Quote{
		Code:          code,
		Name:          DisplayName(code),
		Price:         lr.Data.Price,
		Currency:      lr.Data.Currency,
		ChangePercent: lr.Data.Changes.Day.Percent,
	}
	if q.Currency == "" {
		q.Currency = "USD"
	}
	if t, err := time.Parse(time.RFC3339, lr.Data.CreatedAt); err == nil {
		q.UpdatedAt = t.UTC()
	}
	return q, nil
}
