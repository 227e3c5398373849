package oracle

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/signalwatch/freqscan-cli/pkg/anthropic"
	"github.com/signalwatch/freqscan-cli/pkg/perplexity"
)

// PerplexityProvider completes prompts through the Perplexity search API
// with external retrieval enabled.
type PerplexityProvider struct {
	client    perplexity.Client
	webSearch bool
}

// NewPerplexityProvider creates a provider. webSearch toggles the
// provider-side external retrieval.
func NewPerplexityProvider(client perplexity.Client, webSearch bool) *PerplexityProvider {
	return &PerplexityProvider{client: client, webSearch: webSearch}
}

// Name implements Provider.
func (p *PerplexityProvider) Name() string { return "perplexity" }

// Complete implements Provider.
func (p *PerplexityProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	req := perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}
	if p.webSearch {
		req.WebSearchOptions = &perplexity.WebSearchOptions{SearchContextSize: "medium"}
	} else {
		req.DisableSearch = true
	}

	resp, err := p.client.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("perplexity: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// AnthropicProvider completes prompts through the Anthropic messages API.
// It has no retrieval of its own; answers come from model knowledge.
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider creates a provider.
func NewAnthropicProvider(client anthropic.Client) *AnthropicProvider {
	return &AnthropicProvider{client: client}
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Complete implements Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		System:   system,
		Messages: []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
