package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	"github.com/seo-insights/backend/scoring"
)

const systemPrompt = `You are an SEO consultant. You receive search visibility and page experience scores for one domain and keyword. ` +
	`Reply with a short prioritised list of concrete fixes. Do not restate the scores.`

// ErrNoAdvice is returned when the model produced no usable answer
var ErrNoAdvice = errors.New("no advice returned")

// Input is everything the advice prompt is built from
type Input struct {
	Keyword    string
	Domain     string
	Search     scoring.SearchScoreBreakdown
	Experience scoring.PageScore
	Issues     []string
}

// Generator turns scores into written recommendations
type Generator interface {
	Advise(ctx context.Context, in Input) (string, error)
}

// Noop never produces advice. It is used when no model is configured.
type Noop struct{}

func (Noop) Advise(context.Context, Input) (string, error) { return "", nil }

// Options configures an OpenAIGenerator
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Retries int
}

// OpenAIGenerator asks a chat completion model for advice
type OpenAIGenerator struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewGenerator returns an OpenAIGenerator, or Noop when no API key is set
func NewGenerator(opts Options) Generator {
	if opts.APIKey == "" {
		return Noop{}
	}
	return NewOpenAIGenerator(opts)
}

func NewOpenAIGenerator(opts Options) *OpenAIGenerator {
	if opts.Model == "" {
		opts.Model = openai.ChatModelGPT4oMini
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(opts.Retries),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &OpenAIGenerator{
		client:  openai.NewClient(reqOpts...),
		model:   opts.Model,
		timeout: opts.Timeout,
	}
}

// Advise sends the scores to the model and returns its reply
func (g *OpenAIGenerator) Advise(ctx context.Context, in Input) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(in)),
		},
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return "", fmt.Errorf("advice request failed: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("model", g.model).
		Int64("total_tokens", resp.Usage.TotalTokens).
		Dur("took", time.Since(start)).
		Msg("Advice generated")

	if len(resp.Choices) == 0 {
		return "", ErrNoAdvice
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrNoAdvice
	}
	return text, nil
}

// BuildPrompt renders the scores as the user message of the advice request
func BuildPrompt(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Domain: %s\n", in.Domain)
	fmt.Fprintf(&b, "Keyword: %s\n\n", in.Keyword)

	s := in.Search
	fmt.Fprintf(&b, "Search visibility score: %d/100\n", s.Total)
	fmt.Fprintf(&b, "- Ranking position: %d/30\n", s.RankingPosition)
	fmt.Fprintf(&b, "- Keyword relevance: %d/20\n", s.KeywordRelevance)
	fmt.Fprintf(&b, "- Rich snippets: %d/15\n", s.RichSnippets)
	fmt.Fprintf(&b, "- URL structure: %d/10\n", s.URLStructure)
	fmt.Fprintf(&b, "- Visibility: %d/5\n", s.Visibility)
	fmt.Fprintf(&b, "- Competitor analysis: %d/10\n", s.CompetitorAnalysis)
	fmt.Fprintf(&b, "- Pagination strength: %d/10\n\n", s.PaginationStrength)

	m := in.Experience.Metrics
	fmt.Fprintf(&b, "Page experience score: %d/100\n", in.Experience.Score)
	writeMetric(&b, "First Contentful Paint", m.FCP, "ms")
	writeMetric(&b, "Largest Contentful Paint", m.LCP, "ms")
	writeMetric(&b, "Cumulative Layout Shift", m.CLS, "")
	writeMetric(&b, "Total Blocking Time", m.TBT, "ms")
	writeMetric(&b, "Speed Index", m.SpeedIndex, "ms")
	writeMetric(&b, "Time to Interactive", m.TTI, "ms")

	if len(in.Issues) > 0 {
		b.WriteString("\nOn-page issues:\n")
		for _, issue := range in.Issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
	}

	return b.String()
}

func writeMetric(b *strings.Builder, name string, v *float64, unit string) {
	if v == nil {
		fmt.Fprintf(b, "- %s: not measured\n", name)
		return
	}
	if unit == "" {
		fmt.Fprintf(b, "- %s: %.3f\n", name, *v)
		return
	}
	fmt.Fprintf(b, "- %s: %.0f%s\n", name, *v, unit)
}
