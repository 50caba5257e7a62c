package vision

import (
	"context"

	"github.com/homescout/leadgen/pkg/anthropic"
	"github.com/homescout/leadgen/pkg/gemini"
	"github.com/homescout/leadgen/pkg/openai"
	"github.com/homescout/leadgen/pkg/staticmap"
)

// Provider is the polymorphic classification capability the verifier tries
// in rank order. The heterogeneous upstream request/response shapes are each
// adapter's concern; the verifier only sees raw response text.
type Provider interface {
	Name() string
	Available() bool
	Classify(ctx context.Context, img *staticmap.ImageRef, prompt string) (string, error)
}

// anthropicProvider adapts pkg/anthropic to the Provider capability.
type anthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider wraps an Anthropic client as a vision provider.
func NewAnthropicProvider(client anthropic.Client) Provider {
	return &anthropicProvider{client: client}
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Available() bool { return p.client != nil }

func (p *anthropicProvider) Classify(ctx context.Context, img *staticmap.ImageRef, prompt string) (string, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Prompt: prompt,
		Image: &anthropic.ImageInput{
			MediaType: img.MediaType,
			Data:      img.Data,
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// openaiProvider adapts pkg/openai to the Provider capability.
type openaiProvider struct {
	client openai.Client
}

// NewOpenAIProvider wraps an OpenAI client as a vision provider.
func NewOpenAIProvider(client openai.Client) Provider {
	return &openaiProvider{client: client}
}

func (p *openaiProvider) Name() string { return "openai" }

func (p *openaiProvider) Available() bool { return p.client != nil }

func (p *openaiProvider) Classify(ctx context.Context, img *staticmap.ImageRef, prompt string) (string, error) {
	resp, err := p.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Prompt:    prompt,
		MaxTokens: 1024,
		Image: &openai.ImageInput{
			MediaType: img.MediaType,
			Data:      img.Data,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// geminiProvider adapts pkg/gemini to the Provider capability.
type geminiProvider struct {
	client gemini.Client
}

// NewGeminiProvider wraps a Gemini client as a vision provider.
func NewGeminiProvider(client gemini.Client) Provider {
	return &geminiProvider{client: client}
}

func (p *geminiProvider) Name() string { return "gemini" }

func (p *geminiProvider) Available() bool { return p.client != nil }

func (p *geminiProvider) Classify(ctx context.Context, img *staticmap.ImageRef, prompt string) (string, error) {
	resp, err := p.client.GenerateContent(ctx, gemini.GenerateRequest{
		Prompt: prompt,
		Image: &gemini.ImageInput{
			MediaType: img.MediaType,
			Data:      img.Data,
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
