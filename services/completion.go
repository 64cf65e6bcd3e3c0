package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/podbrah/podbrah-backend/apperr"
)

// Task selects per-call-site sampling settings.
type Task string

const (
	TaskGist      Task = "gist"
	TaskThemeChat Task = "theme_chat"
	TaskFeedback  Task = "feedback"
	TaskSynthesis Task = "synthesis"
)

type TaskConfig struct {
	Temperature float32
	MaxTokens   int32
}

var taskConfigs = map[Task]TaskConfig{
	TaskGist:      {Temperature: 0.7, MaxTokens: 50},
	TaskThemeChat: {Temperature: 0.7, MaxTokens: 500},
	TaskFeedback:  {Temperature: 0.3, MaxTokens: 200},
	TaskSynthesis: {Temperature: 0.9, MaxTokens: 500},
}

func ConfigFor(task Task) TaskConfig {
	if cfg, ok := taskConfigs[task]; ok {
		return cfg
	}
	return taskConfigs[TaskThemeChat]
}

const (
	FallbackReply = "Sorry, I couldn't generate a response."
	ApologyReply  = "I apologize, but I encountered an error. Please try again."
)

var ErrCompletion = apperr.New(apperr.KindUpstream, "completion_failed", "The assistant is unavailable right now, please try again")

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Task    Task
	System  string
	User    string
	History []ChatMessage
}

// Completer returns the model's first reply, trimmed. An empty reply becomes
// FallbackReply; transport and provider failures wrap ErrCompletion.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

func finalizeReply(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return FallbackReply
	}
	return s
}

func completionError(provider string, err error) error {
	if errors.Is(err, ErrCompletion) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrCompletion, provider, err)
}

type timeoutCompleter struct {
	next    Completer
	timeout time.Duration
}

// WithTimeout bounds every call made through c.
func WithTimeout(c Completer, timeout time.Duration) Completer {
	if timeout <= 0 {
		return c
	}
	return &timeoutCompleter{next: c, timeout: timeout}
}

func (t *timeoutCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	out, err := t.next.Complete(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: timed out after %s", ErrCompletion, t.timeout)
		}
		return "", completionError("completion", err)
	}
	return out, nil
}
