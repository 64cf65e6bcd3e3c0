package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	EmbedModel string
	Timeout    time.Duration
}

// OpenAIClient talks to the chat, embeddings and assistants endpoints.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	chatModel  string
	embedModel string
	http       *http.Client
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		chatModel:  cfg.ChatModel,
		embedModel: cfg.EmbedModel,
		http:       newHTTPClient(timeout),
	}
}

func (c *OpenAIClient) do(ctx context.Context, method, path string, body, out any, assistants bool) error {
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if assistants {
		headers["OpenAI-Beta"] = "assistants=v2"
	}
	return doJSON(ctx, c.http, method, c.baseURL+path, headers, body, out)
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int32         `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// Complete implements Completer with /v1/chat/completions.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	cfg := ConfigFor(req.Task)
	messages := make([]ChatMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, req.History...)
	messages = append(messages, ChatMessage{Role: "user", Content: req.User})

	var out chatCompletionResponse
	err := c.do(ctx, http.MethodPost, "/v1/chat/completions", chatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, &out, false)
	if err != nil {
		return "", completionError("openai", err)
	}
	if len(out.Choices) == 0 {
		return FallbackReply, nil
	}
	return finalizeReply(out.Choices[0].Message.Content), nil
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed implements Embedder with /v1/embeddings.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var out embeddingResponse
	if err := c.do(ctx, http.MethodPost, "/v1/embeddings", embeddingRequest{Model: c.embedModel, Input: text}, &out, false); err != nil {
		return nil, fmt.Errorf("%w: openai: %w", ErrEmbedding, err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: openai returned no embedding", ErrEmbedding)
	}
	return out.Data[0].Embedding, nil
}

type assistantObject struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type assistantMessageList struct {
	Data []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text struct {
				Value string `json:"value"`
			} `json:"text"`
		} `json:"content"`
	} `json:"data"`
}

func (c *OpenAIClient) createThread(ctx context.Context) (string, error) {
	var out assistantObject
	if err := c.do(ctx, http.MethodPost, "/v1/threads", map[string]any{}, &out, true); err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return out.ID, nil
}

func (c *OpenAIClient) addMessage(ctx context.Context, threadID, content string) error {
	body := map[string]string{"role": "user", "content": content}
	if err := c.do(ctx, http.MethodPost, "/v1/threads/"+url.PathEscape(threadID)+"/messages", body, nil, true); err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	return nil
}

func (c *OpenAIClient) createRun(ctx context.Context, threadID, assistantID string) (string, error) {
	var out assistantObject
	body := map[string]string{"assistant_id": assistantID}
	if err := c.do(ctx, http.MethodPost, "/v1/threads/"+url.PathEscape(threadID)+"/runs", body, &out, true); err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return out.ID, nil
}

func (c *OpenAIClient) runStatus(ctx context.Context, threadID, runID string) (string, error) {
	var out assistantObject
	path := "/v1/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return "", fmt.Errorf("get run: %w", err)
	}
	return out.Status, nil
}

// latestAssistantText returns the newest assistant message on the thread.
func (c *OpenAIClient) latestAssistantText(ctx context.Context, threadID string) (string, error) {
	var out assistantMessageList
	path := "/v1/threads/" + url.PathEscape(threadID) + "/messages?order=desc&limit=20"
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	for _, m := range out.Data {
		if m.Role != "assistant" {
			continue
		}
		var b strings.Builder
		for _, part := range m.Content {
			if part.Type == "text" {
				b.WriteString(part.Text.Value)
			}
		}
		return b.String(), nil
	}
	return "", nil
}
