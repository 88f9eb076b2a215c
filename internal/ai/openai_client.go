package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const messageTypeText = "text"

type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	AssistantID  string
	PollInterval time.Duration
	RunTimeout   time.Duration
}

// OpenAIClient implements Conversations on top of the Assistants API:
// a context is a thread, processing is a run.
type OpenAIClient struct {
	client       *openai.Client
	assistantID  string
	pollInterval time.Duration
	runTimeout   time.Duration
	logger       *slog.Logger
}

func NewOpenAIClient(cfg OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}

	return &OpenAIClient{
		client:       openai.NewClientWithConfig(oc),
		assistantID:  cfg.AssistantID,
		pollInterval: cfg.PollInterval,
		runTimeout:   cfg.RunTimeout,
		logger:       logger.With("component", "openai"),
	}
}

func (c *OpenAIClient) CreateContext(ctx context.Context) (string, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrContextCreation, err)
	}
	if thread.ID == "" {
		return "", fmt.Errorf("%w: empty thread id", ErrContextCreation)
	}

	c.logger.Info("thread created", "thread_id", thread.ID)
	return thread.ID, nil
}

func (c *OpenAIClient) AppendMessage(ctx context.Context, threadID string, role Role, text string) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: invalid role %v", ErrAppend, role)
	}

	_, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    role.String(),
		Content: text,
	})
	if err != nil {
		return fmt.Errorf("%w: thread %s: %v", ErrAppend, threadID, err)
	}

	c.logger.Debug("message appended", "thread_id", threadID, "role", role.String())
	return nil
}

// RunAndAwait starts a run and polls it until a terminal status or RunTimeout.
// Transport errors are reported as a RunFailed run, never returned.
func (c *OpenAIClient) RunAndAwait(ctx context.Context, threadID string) Run {
	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: c.assistantID,
	})
	if err != nil {
		return Run{Status: RunFailed, Err: fmt.Errorf("%w: create run: %v", ErrRunTransport, err)}
	}

	pollCtx, cancel := context.WithTimeout(ctx, c.runTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for !isTerminal(run.Status) {
		select {
		case <-pollCtx.Done():
			c.logger.Warn("run wait elapsed", "thread_id", threadID, "run_id", run.ID, "status", run.Status)
			return Run{ID: run.ID, Status: RunNotCompleted, BackendStatus: string(run.Status)}
		case <-ticker.C:
		}

		next, err := c.client.RetrieveRun(pollCtx, threadID, run.ID)
		if err != nil {
			if pollCtx.Err() != nil && ctx.Err() == nil {
				continue
			}
			return Run{
				ID:            run.ID,
				Status:        RunFailed,
				BackendStatus: string(run.Status),
				Err:           fmt.Errorf("%w: retrieve run %s: %v", ErrRunTransport, run.ID, err),
			}
		}
		run = next
	}

	c.logger.Info("run finished", "thread_id", threadID, "run_id", run.ID, "status", run.Status)

	if run.Status != openai.RunStatusCompleted {
		return Run{ID: run.ID, Status: RunNotCompleted, BackendStatus: string(run.Status)}
	}

	messages, err := c.runMessages(ctx, threadID, run.ID)
	if err != nil {
		return Run{
			ID:            run.ID,
			Status:        RunFailed,
			BackendStatus: string(run.Status),
			Err:           fmt.Errorf("%w: list messages: %v", ErrRunTransport, err),
		}
	}

	out := Run{ID: run.ID, Status: RunCompleted, BackendStatus: string(run.Status)}
	if reply, ok := ExtractReply(messages); ok && reply != "" {
		out.Reply = &reply
	}
	return out
}

// runMessages lists the messages produced by a run, newest first.
func (c *OpenAIClient) runMessages(ctx context.Context, threadID, runID string) ([]Message, error) {
	order := "desc"
	list, err := c.client.ListMessage(ctx, threadID, nil, &order, nil, nil, &runID)
	if err != nil {
		return nil, err
	}

	out := make([]Message, 0, len(list.Messages))
	for _, m := range list.Messages {
		role, err := ParseRole(m.Role)
		if err != nil {
			c.logger.Debug("skipping message with unknown role", "thread_id", threadID, "role", m.Role)
			continue
		}
		msg := Message{Role: role}
		for _, part := range m.Content {
			if part.Type == messageTypeText && part.Text != nil {
				msg.Segments = append(msg.Segments, part.Text.Value)
			}
		}
		out = append(out, msg)
	}
	return out, nil
}

func isTerminal(s openai.RunStatus) bool {
	switch s {
	case openai.RunStatusCompleted,
		openai.RunStatusFailed,
		openai.RunStatusCancelled,
		openai.RunStatusExpired,
		openai.RunStatusRequiresAction,
		"incomplete":
		return true
	}
	return false
}

// IsNotFound reports whether err is a 404 from the OpenAI API.
func IsNotFound(err error) bool {
	var apiErr *openai.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 404
}
