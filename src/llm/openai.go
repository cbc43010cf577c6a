package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openAICompatible serves any chat-completions endpoint (OpenAI, Groq).
type openAICompatible struct {
	name   string
	client openai.Client
}

func newOpenAICompatible(name, apiKey, baseURL string) Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAICompatible{name: name, client: openai.NewClient(opts...)}
}

func (p *openAICompatible) Name() string { return p.name }

func (p *openAICompatible) Send(ctx context.Context, systemPrompt, userPrompt string, params ModelParams) (string, error) {
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: params.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(params.Temperature),
		MaxTokens:   openai.Int(int64(params.MaxTokens)),
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in API response")
	}
	return completion.Choices[0].Message.Content, nil
}
