package gemini

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deusflow/energynews/internal/logger"
)

const defaultModel = "gemini-1.5-flash"

type Client struct {
	client *genai.Client
	model  string
}

// NewsSummary is a short rewrite of one article for the digest.
type NewsSummary struct {
	Headline string
	Summary  string
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{client: client, model: defaultModel}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// SummarizeNews asks the model for a headline and a 2-3 sentence summary in
// the language of the article.
func (c *Client) SummarizeNews(ctx context.Context, title, content string) (*NewsSummary, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.3)

	prompt := buildPrompt(title, prepareContent(content, 6000))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return parseSummaryResponse(sb.String())
}

func buildPrompt(title, content string) string {
	return fmt.Sprintf(`You are an editor of an energy market news digest for South-East Asia.

ARTICLE:
Title: %s
Content: %s

TASK:
Write a neutral headline (max 15 words) and a summary of 2-3 sentences (max 400 characters).
Answer in the language of the article. Keep company, project and place names as written.
Do not add facts that are not in the article. No introductions such as "This article says".

Reply strictly in this format:

HEADLINE: <headline>
SUMMARY: <summary>
`, title, content)
}

// prepareContent collapses whitespace and cuts long input on a sentence end.
func prepareContent(content string, maxChars int) string {
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= maxChars {
		return content
	}
	trimmed := string([]rune(content)[:maxChars])
	if idx := strings.LastIndex(trimmed, ". "); idx > len(trimmed)/5 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed + "\n[TRUNCATED]"
}

var labelPatterns = []struct {
	name  string
	regex *regexp.Regexp
}{
	{"headline", regexp.MustCompile(`(?i)^\**\s*(HEADLINE|TITLE|หัวข้อ)\s*\**\s*:\s*\**\s*`)},
	{"summary", regexp.MustCompile(`(?i)^\**\s*(SUMMARY|สรุป)\s*\**\s*:\s*\**\s*`)},
}

func parseSummaryResponse(response string) (*NewsSummary, error) {
	var headline, summary strings.Builder
	current := ""

	appendText := func(section, text string) {
		if text == "" {
			return
		}
		b := &summary
		if section == "headline" {
			b = &headline
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(text)
	}

	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		matched := false
		for _, lp := range labelPatterns {
			if lp.regex.MatchString(line) {
				current = lp.name
				appendText(current, strings.TrimSpace(lp.regex.ReplaceAllString(line, "")))
				matched = true
				break
			}
		}
		if !matched && current != "" {
			appendText(current, line)
		}
	}

	out := &NewsSummary{
		Headline: strings.TrimSpace(headline.String()),
		Summary:  strings.TrimSpace(summary.String()),
	}
	if out.Summary == "" {
		// Unlabelled answer: take it as the summary.
		plain := strings.Join(strings.Fields(response), " ")
		if plain == "" {
			return nil, fmt.Errorf("could not parse Gemini response: empty")
		}
		logger.Warn("fallback parsing of Gemini response", "response", plain)
		out.Summary = FallbackSummary(plain)
	}
	return out, nil
}

var sentenceEnd = regexp.MustCompile(`[.!?។](\s+|$)`)

// FallbackSummary keeps the first two sentences of content, or the first 300
// runes when no sentence end is found.
func FallbackSummary(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if content == "" {
		return ""
	}

	ends := sentenceEnd.FindAllStringIndex(content, 2)
	if len(ends) > 0 {
		cut := ends[len(ends)-1][0] + 1
		if s := strings.TrimSpace(content[:cut]); utf8.RuneCountInString(s) <= 400 {
			return s
		}
	}
	if utf8.RuneCountInString(content) <= 300 {
		return content
	}
	return strings.TrimSpace(string([]rune(content)[:297])) + "..."
}
