package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// NewGeminiClient is shared by the completer and the embedder. Close it on shutdown.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

type GeminiCompleter struct {
	client *genai.Client
	model  string
}

func NewGeminiCompleter(client *genai.Client, model string) *GeminiCompleter {
	return &GeminiCompleter{client: client, model: model}
}

func (g *GeminiCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	cfg := ConfigFor(req.Task)
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(cfg.Temperature)
	model.SetMaxOutputTokens(cfg.MaxTokens)
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}

	cs := model.StartChat()
	for _, m := range req.History {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(req.User))
	if err != nil {
		return "", completionError("gemini", err)
	}
	return finalizeReply(geminiText(resp)), nil
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

func NewGeminiEmbedder(client *genai.Client, model string) *GeminiEmbedder {
	return &GeminiEmbedder{client: client, model: model}
}

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := g.client.EmbeddingModel(g.model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %w", ErrEmbedding, err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: gemini returned no values", ErrEmbedding)
	}
	return res.Embedding.Values, nil
}
