// Package chat proxies visitor questions to a hosted language model.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const systemInstruction = `You are the DUET Robotics Club (DRC) AI Assistant.
You are professional, encouraging, and highly knowledgeable about robotics and the club.
DUET is Dhaka University of Engineering & Technology, located in Gazipur, Bangladesh.
Club Activities include: LFR, Drones, Soccer Bots, Firefighting robots, and various workshops.
You help potential members understand the club's mission and technical focus.
Keep responses concise and helpful. Use markdown formatting.`

var ErrNotConfigured = errors.New("chat assistant is not configured")

// Assistant answers one visitor prompt.
type Assistant interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

type GeminiConfig struct {
	// BaseURL overrides the Gemini API endpoint; empty keeps the SDK default.
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// GeminiClient answers through the Gemini API. Without an API key it is
// left unconfigured and every Ask returns ErrNotConfigured.
type GeminiClient struct {
	model  string
	client *genai.Client
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	g := &GeminiClient{model: cfg.Model}
	if cfg.APIKey == "" {
		return g, nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

func (c *GeminiClient) Ask(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
		TopK:              genai.Ptr[float32](40),
		TopP:              genai.Ptr[float32](0.95),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
