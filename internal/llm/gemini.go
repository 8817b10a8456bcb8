package llm

import (
	"context"

	"google.golang.org/genai"
)

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
}

// NewGemini creates a Gemini completer. An empty baseURL uses the public
// endpoint.
func NewGemini(ctx context.Context, apiKey, baseURL string) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client}, nil
}

// Complete sends instructions as the system instruction and input as the
// single user content.
func (g *Gemini) Complete(ctx context.Context, model, instructions, input string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(input), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: instructions}},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
