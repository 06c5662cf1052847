package inference

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// Gemini calls the Gemini API with JSON output. The client is created by
// Load, so a missing API key leaves the model unloaded.
type Gemini struct {
	model     string
	apiKeyEnv string
	client    *genai.Client
}

// NewGemini reads the API key from the environment variable apiKeyEnv on Load.
func NewGemini(model, apiKeyEnv string) *Gemini {
	return &Gemini{model: model, apiKeyEnv: apiKeyEnv}
}

func (g *Gemini) Load(ctx context.Context) error {
	key := os.Getenv(g.apiKeyEnv)
	if key == "" {
		return fmt.Errorf("gemini: %s is not set", g.apiKeyEnv)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}
	g.client = client
	return nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Complete(ctx context.Context, p Prompt, maxTokens int) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}
	if g.client == nil {
		return "", ErrNotLoaded
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(p.User()), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}
