package vision

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Gemini implements Client using Google Gemini.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a Gemini-backed vision client.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	// The shared model object must stay read-only for concurrent calls, so
	// the system prompt travels as a leading text part instead of mutating
	// model.SystemInstruction.
	var parts []genai.Part
	if req.System != "" {
		parts = append(parts, genai.Text(req.System))
	}
	if req.ImagePNG != nil {
		parts = append(parts, genai.ImageData("png", req.ImagePNG))
	}
	parts = append(parts, genai.Text(req.Prompt))

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	return sb.String(), nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func classifyGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && retryableStatus(apiErr.Code) {
		return Transient(fmt.Errorf("gemini: %w", err))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient(fmt.Errorf("gemini: %w", err))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient(fmt.Errorf("gemini: %w", err))
	}
	return fmt.Errorf("gemini: %w", err)
}
