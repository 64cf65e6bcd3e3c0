package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/podbrah/podbrah-backend/apperr"
)

var ErrAssistantRun = apperr.New(apperr.KindUpstream, "assistant_failed", "The assistant did not finish, please try again")

var errRunPending = errors.New("run still in progress")

// AssistantRunner sends one message to a hosted assistant and waits for its answer.
type AssistantRunner interface {
	Run(ctx context.Context, content string) (string, error)
}

type OpenAIAssistant struct {
	client      *OpenAIClient
	assistantID string
	timeout     time.Duration

	PollInitial time.Duration
	PollMax     time.Duration
}

func NewOpenAIAssistant(client *OpenAIClient, assistantID string, timeout time.Duration) *OpenAIAssistant {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIAssistant{
		client:      client,
		assistantID: assistantID,
		timeout:     timeout,
		PollInitial: time.Second,
		PollMax:     4 * time.Second,
	}
}

func (a *OpenAIAssistant) Run(ctx context.Context, content string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	threadID, err := a.client.createThread(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssistantRun, err)
	}
	if err := a.client.addMessage(ctx, threadID, content); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssistantRun, err)
	}
	runID, err := a.client.createRun(ctx, threadID, a.assistantID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssistantRun, err)
	}

	if err := a.waitForRun(ctx, threadID, runID); err != nil {
		return "", fmt.Errorf("%w: run %s: %w", ErrAssistantRun, runID, err)
	}

	text, err := a.client.latestAssistantText(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssistantRun, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no assistant message on thread %s", ErrAssistantRun, threadID)
	}
	return text, nil
}

func (a *OpenAIAssistant) waitForRun(ctx context.Context, threadID, runID string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.PollInitial
	b.MaxInterval = a.PollMax

	_, err := backoff.Retry(ctx, func() (string, error) {
		status, err := a.client.runStatus(ctx, threadID, runID)
		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode < 500 && httpErr.StatusCode != 429 {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		switch status {
		case "completed":
			return status, nil
		case "queued", "in_progress", "cancelling":
			return "", errRunPending
		default:
			return "", backoff.Permanent(fmt.Errorf("run ended with status %q", status))
		}
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(a.timeout))
	return err
}
