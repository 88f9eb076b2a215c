package ai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const assistantName = "Wazzup Assistant"

var ErrAssistantNotFound = errors.New("assistant not found")

// EnsureAssistant returns the configured assistant id after checking it exists,
// or creates a new assistant from instructions when none is configured.
// created reports whether a new assistant was made.
func (c *OpenAIClient) EnsureAssistant(ctx context.Context, model string, instructions func() (string, error)) (id string, created bool, err error) {
	if c.assistantID != "" {
		a, err := c.client.RetrieveAssistant(ctx, c.assistantID)
		if err != nil {
			if IsNotFound(err) {
				return "", false, fmt.Errorf("%w: %s", ErrAssistantNotFound, c.assistantID)
			}
			return "", false, fmt.Errorf("retrieving assistant: %w", err)
		}
		c.logger.Info("assistant already exists", "assistant_id", a.ID)
		return a.ID, false, nil
	}

	text, err := instructions()
	if err != nil {
		return "", false, err
	}
	if text == "" {
		return "", false, errors.New("assistant instructions are empty")
	}

	name := assistantName
	a, err := c.client.CreateAssistant(ctx, openai.AssistantRequest{
		Name:         &name,
		Instructions: &text,
		Model:        model,
		Tools:        []openai.AssistantTool{},
	})
	if err != nil {
		return "", false, fmt.Errorf("creating assistant: %w", err)
	}

	c.assistantID = a.ID
	c.logger.Info("assistant created", "assistant_id", a.ID, "model", model)
	return a.ID, true, nil
}
