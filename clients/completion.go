package clients

import (
	"context"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/pkg/errors"
)

// --- Text completion (OpenAI-compatible /chat/completions) ---

var ErrCompletionUnavailable = errors.New("completion service unavailable")

type Completion struct {
	Text string
}

type CompleterConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

type Completer struct {
	client  *openai.Client
	model   string
	temp    float64
	timeout time.Duration
}

func NewCompleter(cfg CompleterConfig) *Completer {
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(cfg.MaxRetries),
	)
	return &Completer{client: &client, model: cfg.Model, temp: cfg.Temperature, timeout: cfg.Timeout}
}

// Complete sends prompt as a single user message. Every failure is reported as
// ErrCompletionUnavailable with the cause attached.
func (c *Completer) Complete(ctx context.Context, prompt string) (Completion, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:       c.model,
		Temperature: param.NewOpt(c.temp),
	})
	if err != nil {
		return Completion{}, errors.Wrap(ErrCompletionUnavailable, err.Error())
	}
	if len(completion.Choices) == 0 {
		return Completion{}, errors.Wrap(ErrCompletionUnavailable, "no completion choices")
	}
	return Completion{Text: completion.Choices[0].Message.Content}, nil
}
