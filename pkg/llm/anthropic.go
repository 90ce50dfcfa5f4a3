// Package llm connects the optimization engine to Anthropic models: a
// scoring oracle that judges template quality per test case, and a crossover
// rewriter that blends parent templates into offspring.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/promptpool/fpo/pkg/core"
	errs "github.com/promptpool/fpo/pkg/errors"
	"github.com/promptpool/fpo/pkg/fpo"
	"github.com/promptpool/fpo/pkg/logging"
)

const (
	defaultModel     = anthropic.Model("claude-sonnet-4-5-20250929")
	defaultMaxTokens = 256

	// Scoring wants repeatable judgments, blending wants variety
	scoreTemperature = 0.0
	blendTemperature = 0.7
)

var (
	_ core.Evaluator = (*AnthropicEvaluator)(nil)
	_ fpo.Rewriter   = (*AnthropicRewriter)(nil)
)

// anthropicClient is the request plumbing shared by the evaluator and the
// rewriter.
type anthropicClient struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
	baseURL   string
	timeout   time.Duration
}

// Option configures the Anthropic-backed adapters.
type Option func(*anthropicClient)

// WithModel overrides the default model.
func WithModel(model anthropic.Model) Option {
	return func(c *anthropicClient) {
		c.model = model
	}
}

// WithMaxTokens bounds the reply length per request.
func WithMaxTokens(n int64) Option {
	return func(c *anthropicClient) {
		c.maxTokens = n
	}
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) Option {
	return func(c *anthropicClient) {
		c.baseURL = url
	}
}

// WithTimeout bounds each API request.
func WithTimeout(d time.Duration) Option {
	return func(c *anthropicClient) {
		c.timeout = d
	}
}

func newAnthropicClient(apiKey string, opts ...Option) (*anthropicClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errs.New(errs.InvalidInput, "API key is required")
	}

	c := &anthropicClient{
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if c.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(c.baseURL))
	}
	if c.timeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(c.timeout))
	}
	client := anthropic.NewClient(clientOpts...)
	c.client = &client
	return c, nil
}

// complete sends one user message and returns the text of the first content
// block. API errors come back unwrapped; the caller maps them.
func (c *anthropicClient) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model: c.model,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(temperature),
	})
	if err != nil {
		return "", err
	}
	if message == nil || len(message.Content) == 0 {
		return "", nil
	}
	if block := message.Content[0]; block.Type == "text" {
		return block.Text, nil
	}
	return "", nil
}

// mapAPIError translates transport failures into the engine's error taxonomy.
func mapAPIError(ctx context.Context, err error, fallback errs.ErrorCode, message string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(err, errs.Timeout, message)
	}
	if errors.Is(err, context.Canceled) {
		return errs.Wrap(err, errs.Canceled, message)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		logging.GetLogger().Error(ctx, "Anthropic API error: status code %d", apiErr.StatusCode)
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return errs.Wrap(err, errs.RateLimitExceeded, message)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return errs.Wrap(err, errs.Timeout, message)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return errs.Wrap(err, errs.InvalidInput, message)
		}
	}
	return errs.Wrap(err, fallback, message)
}

// AnthropicEvaluator scores a candidate template against one test case with a
// model judge. The reply is a single 0..1 decimal.
type AnthropicEvaluator struct {
	*anthropicClient
}

// NewAnthropicEvaluator creates a scoring oracle. An empty apiKey falls back
// to the ANTHROPIC_API_KEY environment variable.
func NewAnthropicEvaluator(apiKey string, opts ...Option) (*AnthropicEvaluator, error) {
	c, err := newAnthropicClient(apiKey, opts...)
	if err != nil {
		return nil, err
	}
	return &AnthropicEvaluator{anthropicClient: c}, nil
}

// Evaluate implements core.Evaluator.
func (e *AnthropicEvaluator) Evaluate(ctx context.Context, template string, tc core.TestCase) (float64, error) {
	if err := errs.CheckContext(ctx); err != nil {
		return 0, err
	}
	if strings.TrimSpace(template) == "" {
		return 0, errs.New(errs.InvalidInput, "cannot score an empty template")
	}
	if strings.TrimSpace(tc.Input) == "" {
		return 0, errs.WithFields(
			errs.New(errs.InvalidInput, "test case has no input"),
			errs.Fields{"case": tc.ID})
	}

	text, err := e.complete(ctx, scoringPrompt(template, tc), scoreTemperature)
	if err != nil {
		return 0, errs.WithFields(
			mapAPIError(ctx, err, errs.EvaluationFailed, "scoring request failed"),
			errs.Fields{"case": tc.ID})
	}
	if text == "" {
		return 0, errs.WithFields(
			errs.New(errs.EvaluationFailed, "model returned an empty scoring reply"),
			errs.Fields{"case": tc.ID})
	}

	score, err := parseScore(text)
	if err != nil {
		return 0, errs.WithFields(err, errs.Fields{"case": tc.ID})
	}
	logging.GetLogger().Debug(ctx, "Model scored case %s at %.3f", tc.ID, score)
	return score, nil
}

func scoringPrompt(template string, tc core.TestCase) string {
	var b strings.Builder
	b.WriteString("Score how well this prompt template handles one evaluation case.\n\n")
	fmt.Fprintf(&b, "Template: %q\n", template)
	fmt.Fprintf(&b, "Case input: %q\n", tc.Input)
	if tc.Domain != "" {
		fmt.Fprintf(&b, "Domain: %s\n", tc.Domain)
	}
	if tc.Reference != "" {
		fmt.Fprintf(&b, "Reference answer: %q\n", tc.Reference)
	}
	b.WriteString(`
Judge the output the template would produce for this input:
1. 1.0 means it would match the reference answer
2. 0.0 means it would be wrong or unusable
3. Use intermediate values for partially correct output
4. Answer with a single line of the form SCORE: <value>

SCORE:`)
	return b.String()
}

// parseScore extracts the first 0..1 decimal from the model reply,
// tolerating a SCORE: prefix and surrounding prose lines. Out-of-range values
// clamp to the unit interval.
func parseScore(response string) (float64, error) {
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		if idx := strings.Index(upper, "SCORE:"); idx != -1 {
			line = strings.TrimSpace(line[idx+len("SCORE:"):])
		}
		value, err := strconv.ParseFloat(strings.TrimRight(line, "."), 64)
		if err != nil {
			continue
		}
		if value < 0 {
			value = 0
		}
		if value > 1 {
			value = 1
		}
		return value, nil
	}
	return 0, errs.WithFields(
		errs.New(errs.EvaluationFailed, "model reply held no numeric score"),
		errs.Fields{"response": response})
}

// AnthropicRewriter blends two parent templates into one offspring. Errors
// make the caller fall back to structural splicing, so every failure here is
// recoverable.
type AnthropicRewriter struct {
	*anthropicClient
}

// NewAnthropicRewriter creates a crossover rewriter. An empty apiKey falls
// back to the ANTHROPIC_API_KEY environment variable.
func NewAnthropicRewriter(apiKey string, opts ...Option) (*AnthropicRewriter, error) {
	c, err := newAnthropicClient(apiKey, opts...)
	if err != nil {
		return nil, err
	}
	return &AnthropicRewriter{anthropicClient: c}, nil
}

// Blend implements the crossover rewriter contract.
func (r *AnthropicRewriter) Blend(ctx context.Context, parentA, parentB string) (string, error) {
	if err := errs.CheckContext(ctx); err != nil {
		return "", err
	}

	text, err := r.complete(ctx, blendPrompt(parentA, parentB), blendTemperature)
	if err != nil {
		return "", mapAPIError(ctx, err, errs.Unknown, "crossover request failed")
	}

	offspring := parseOffspring(text)
	if offspring == "" {
		return "", errs.New(errs.Unknown, "model reply held no offspring template")
	}
	return offspring, nil
}

func blendPrompt(parentA, parentB string) string {
	return fmt.Sprintf(`Create one new instruction template by combining the best aspects of these parent templates:

Parent 1: %q
Parent 2: %q

Generate one offspring that:
1. Combines semantic elements from both parents
2. Maintains clarity and effectiveness
3. Reads as a novel but coherent instruction
4. Fits on a single line after the marker

OFFSPRING:`, parentA, parentB)
}

// parseOffspring pulls the offspring template out of the model reply: the
// remainder of the OFFSPRING: line, or the first non-empty line after it.
func parseOffspring(response string) string {
	take := false
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		if idx := strings.Index(upper, "OFFSPRING:"); idx != -1 {
			rest := strings.TrimSpace(line[idx+len("OFFSPRING:"):])
			if rest != "" {
				return cleanTemplateLine(rest)
			}
			take = true
			continue
		}
		if take {
			return cleanTemplateLine(line)
		}
	}
	return ""
}

func cleanTemplateLine(line string) string {
	line = strings.TrimSpace(line)
	for _, prefix := range []string{"1.", "2.", "-", "*"} {
		if strings.HasPrefix(line, prefix) {
			line = strings.TrimSpace(line[len(prefix):])
		}
	}
	return strings.Trim(line, `"`)
}
