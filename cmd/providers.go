package main

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"

	"github.com/podbrah/podbrah-backend/config"
	"github.com/podbrah/podbrah-backend/logger"
	"github.com/podbrah/podbrah-backend/services"
)

type providerDeps struct {
	completer services.Completer
	embedder  services.Embedder
	assistant services.AssistantRunner
}

// buildServices picks the completion and embedding providers from config.
// The Gemini client is only created when one of them needs it.
func buildServices(ctx context.Context, cfg *config.Config, log *logger.Logger) (providerDeps, func(), error) {
	var deps providerDeps
	cleanup := func() {}

	var gemini *genai.Client
	if cfg.LLMProvider == "gemini" || cfg.EmbeddingProvider == "gemini" {
		client, err := services.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return deps, cleanup, fmt.Errorf("gemini client: %w", err)
		}
		gemini = client
		cleanup = func() { _ = client.Close() }
	}

	var openai *services.OpenAIClient
	if cfg.OpenAIAPIKey != "" {
		openai = services.NewOpenAIClient(services.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			ChatModel:  cfg.OpenAIModel,
			EmbedModel: cfg.OpenAIEmbedModel,
			Timeout:    cfg.CompletionTimeout,
		})
	}

	switch cfg.LLMProvider {
	case "gemini":
		deps.completer = services.NewGeminiCompleter(gemini, cfg.GeminiModel)
	default:
		if openai == nil {
			return deps, cleanup, fmt.Errorf("LLM_PROVIDER=openai needs OPENAI_API_KEY")
		}
		deps.completer = openai
	}
	deps.completer = services.WithTimeout(deps.completer, cfg.CompletionTimeout)

	switch cfg.EmbeddingProvider {
	case "gemini":
		deps.embedder = services.NewGeminiEmbedder(gemini, cfg.GeminiEmbedModel)
	default:
		if openai == nil {
			return deps, cleanup, fmt.Errorf("EMBEDDING_PROVIDER=openai needs OPENAI_API_KEY")
		}
		deps.embedder = openai
	}

	if cfg.OpenAIAssistantID != "" && openai != nil {
		deps.assistant = services.NewOpenAIAssistant(openai, cfg.OpenAIAssistantID, cfg.AssistantTimeout)
	} else {
		log.Warn("talk chat disabled, OPENAI_ASSISTANT_ID or OPENAI_API_KEY missing")
	}
	return deps, cleanup, nil
}
