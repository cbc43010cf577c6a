package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type providerPreferences struct {
	Order          []string `json:"order,omitempty"`
	AllowFallbacks *bool    `json:"allow_fallbacks,omitempty"`
}

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []chatMessage        `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Provider    *providerPreferences `json:"provider,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"` // string or number
}

// openRouter talks to the OpenRouter chat endpoint directly so the
// upstream "provider" routing block can be sent.
type openRouter struct {
	apiKey  string
	url     string
	routing []string
	client  *http.Client
}

func newOpenRouter(apiKey, url string, routing []string) Provider {
	// Deadline comes from the request context.
	return &openRouter{apiKey: apiKey, url: url, routing: routing, client: &http.Client{}}
}

func (p *openRouter) Name() string { return "openrouter" }

func (p *openRouter) preferences() *providerPreferences {
	if len(p.routing) == 0 {
		return nil
	}
	allowFallbacks := false
	return &providerPreferences{Order: p.routing, AllowFallbacks: &allowFallbacks}
}

func (p *openRouter) Send(ctx context.Context, systemPrompt, userPrompt string, params ModelParams) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: params.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		Provider:    p.preferences(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("X-Title", "Ctrl+AI")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %v", resp.StatusCode, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("API error: %s (type: %s, code: %v)", out.Error.Message, out.Error.Type, out.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("no choices in API response")
	}
	return out.Choices[0].Message.Content, nil
}
