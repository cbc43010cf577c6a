package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicProvider struct {
	client anthropic.Client
}

func newAnthropic(apiKey string) Provider {
	return &anthropicProvider{client: anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)}
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Send(ctx context.Context, systemPrompt, userPrompt string, params ModelParams) (string, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(params.Model),
		MaxTokens: int64(params.MaxTokens),
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
		Temperature: anthropic.Float(params.Temperature),
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if _, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
